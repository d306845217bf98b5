package repository

import (
	"context"

	"github.com/edupulse/schoolops-backend/internal/model"
)

// StaffRepository handles staff account data access.
type StaffRepository struct {
	db DBTX
}

// GetStaffByID retrieves a staff member by ID.
func (r *StaffRepository) GetStaffByID(ctx context.Context, id int64) (*model.Staff, error) {
	s := &model.Staff{}
	err := r.db.QueryRow(ctx,
		`SELECT id, email, name, role, password_hash, created_at, updated_at
		 FROM staff WHERE id = $1`, id,
	).Scan(&s.ID, &s.Email, &s.Name, &s.Role, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

// GetStaffByEmail retrieves a staff member by their unique email.
func (r *StaffRepository) GetStaffByEmail(ctx context.Context, email string) (*model.Staff, error) {
	s := &model.Staff{}
	err := r.db.QueryRow(ctx,
		`SELECT id, email, name, role, password_hash, created_at, updated_at
		 FROM staff WHERE LOWER(email) = LOWER($1)`, email,
	).Scan(&s.ID, &s.Email, &s.Name, &s.Role, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

// CreateStaff inserts a new staff account.
func (r *StaffRepository) CreateStaff(ctx context.Context, s *model.Staff) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO staff (email, name, role, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		s.Email, s.Name, s.Role, s.PasswordHash,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapErr(err)
}
