package service

import (
	"errors"
	"fmt"
)

// Rule codes carried by RuleError. Handlers pass them through to clients.
const (
	CodeSameClass          = "SAME_CLASS"
	CodeTargetInactive     = "TARGET_INACTIVE"
	CodeTargetNotUpcoming  = "TARGET_NOT_UPCOMING"
	CodeStudentNotRelated  = "STUDENT_NOT_RELATED"
	CodeNoteRequired       = "NOTE_REQUIRED"
	CodeInvalidStatus      = "INVALID_STATUS"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeInvalidInitiatedBy = "INVALID_INITIATED_FROM"
	CodeInvalidReason      = "INVALID_REASON"
	CodeInvalidWindow      = "INVALID_WINDOW"
	CodeInvalidSchedule    = "INVALID_SCHEDULE"
)

// RuleError is a business-rule violation. It is always returned to the
// caller and never swallowed by a sweep.
type RuleError struct {
	Code    string
	Message string
}

func (e *RuleError) Error() string {
	return e.Message
}

func ruleErr(code, format string, args ...any) *RuleError {
	return &RuleError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsRuleError unwraps err into a *RuleError.
func AsRuleError(err error) (*RuleError, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
