package repository

import (
	"context"

	"github.com/edupulse/schoolops-backend/internal/model"
)

// CourseRepository handles course reads. Courses are owned upstream.
type CourseRepository struct {
	db DBTX
}

const courseColumns = `co.id, co.name, co.status, co.teacher_id, co.facility_id, co.classroom_id,
	co.is_active, co.created_at, co.updated_at`

func courseDest(co *model.Course) []any {
	return []any{&co.ID, &co.Name, &co.Status, &co.TeacherID, &co.FacilityID, &co.ClassroomID,
		&co.IsActive, &co.CreatedAt, &co.UpdatedAt}
}

// GetCourse retrieves a course by its ID.
func (r *CourseRepository) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	co := &model.Course{}
	err := r.db.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses co WHERE co.id = $1`, id,
	).Scan(courseDest(co)...)
	if err != nil {
		return nil, mapErr(err)
	}
	return co, nil
}

// ListActiveCourses returns every course that has at least one enrollment
// or class, in ID order.
func (r *CourseRepository) ListActiveCourses(ctx context.Context) ([]model.Course, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+courseColumns+`
		 FROM courses co
		 WHERE EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = co.id)
		    OR EXISTS (SELECT 1 FROM classes c WHERE c.course_id = co.id)
		 ORDER BY co.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var co model.Course
		if err := rows.Scan(courseDest(&co)...); err != nil {
			return nil, err
		}
		courses = append(courses, co)
	}
	return courses, rows.Err()
}
