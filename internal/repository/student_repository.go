package repository

import (
	"context"

	"github.com/edupulse/schoolops-backend/internal/model"
)

// StudentRepository handles student reads. Student records are managed
// elsewhere.
type StudentRepository struct {
	db DBTX
}

// GetStudent retrieves a student by ID.
func (r *StudentRepository) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	s := &model.Student{}
	err := r.db.QueryRow(ctx,
		`SELECT id, first_name, last_name, contact_email, created_at
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.FirstName, &s.LastName, &s.ContactEmail, &s.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}
