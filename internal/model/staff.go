package model

import "time"

// StaffRole scopes what a staff member may see and do.
type StaffRole string

const (
	StaffRoleAdmin   StaffRole = "admin"
	StaffRoleTeacher StaffRole = "teacher"
)

// Staff represents an admin or teacher account.
type Staff struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         StaffRole `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StaffLoginRequest is the payload for staff authentication.
type StaffLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// Actor identifies who triggered a mutation. A nil *Actor is the system.
type Actor struct {
	ID   int64     `json:"id"`
	Name string    `json:"name"`
	Role StaffRole `json:"role"`
}

// DisplayName is used in audit lines.
func (a *Actor) DisplayName() string {
	if a == nil || a.Name == "" {
		return "System"
	}
	return a.Name
}

// IsTeacher reports whether candidate lists must be scoped to own courses.
func (a *Actor) IsTeacher() bool {
	return a != nil && a.Role == StaffRoleTeacher
}

// IDPtr returns the actor's ID for created_by/updated_by columns.
func (a *Actor) IDPtr() *int64 {
	if a == nil || a.ID == 0 {
		return nil
	}
	id := a.ID
	return &id
}
