package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrRateLimitExceeded  ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Makeup & attendance rules ─────────────────────────────────────
	// These mirror service.RuleError codes; the service message is sent
	// as-is.
	ErrSameClass         ErrCode = "SAME_CLASS"
	ErrTargetInactive    ErrCode = "TARGET_INACTIVE"
	ErrTargetNotUpcoming ErrCode = "TARGET_NOT_UPCOMING"
	ErrStudentNotRelated ErrCode = "STUDENT_NOT_RELATED"
	ErrNoteRequired      ErrCode = "NOTE_REQUIRED"
	ErrInvalidStatus     ErrCode = "INVALID_STATUS"
	ErrInvalidTransition ErrCode = "INVALID_TRANSITION"

	// ─── Sync ──────────────────────────────────────────────────────────
	ErrSyncFailed       ErrCode = "SYNC_FAILED"
	ErrQueueUnavailable ErrCode = "QUEUE_UNAVAILABLE"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect email or password."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."
	case ErrRateLimitExceeded:
		return "Too many attempts. Please try again later."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Makeup & attendance rules ─────────────────────────────────────
	case ErrSameClass:
		return "Source and target class must be different."
	case ErrTargetInactive:
		return "The target class is inactive."
	case ErrTargetNotUpcoming:
		return "The target class has already started."
	case ErrStudentNotRelated:
		return "The student is not related to the source class."
	case ErrNoteRequired:
		return "A note is required for this change."
	case ErrInvalidStatus:
		return "Unknown status."
	case ErrInvalidTransition:
		return "This status change is not allowed."

	// ─── Sync ──────────────────────────────────────────────────────────
	case ErrSyncFailed:
		return "Attendance synchronization failed."
	case ErrQueueUnavailable:
		return "The background sync queue is not available."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
