package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx. Begin on a pgx.Tx opens a
// savepoint.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore implements Store on PostgreSQL. Each embedded repository owns the
// queries for one table.
type PgStore struct {
	db  DBTX
	loc *time.Location

	*CourseRepository
	*ClassRepository
	*StudentRepository
	*StaffRepository
	*EnrollmentRepository
	*AttendanceRepository
	*MakeupSessionRepository
}

var _ Store = (*PgStore)(nil)

// NewPgStore creates a store over the pool. loc is the zone that TIMESTAMP
// (without time zone) columns are read and written in.
func NewPgStore(pool *pgxpool.Pool, loc *time.Location) *PgStore {
	return newPgStore(pool, loc)
}

func newPgStore(db DBTX, loc *time.Location) *PgStore {
	if loc == nil {
		loc = time.UTC
	}
	return &PgStore{
		db:                      db,
		loc:                     loc,
		CourseRepository:        &CourseRepository{db: db},
		ClassRepository:         &ClassRepository{db: db},
		StudentRepository:       &StudentRepository{db: db},
		StaffRepository:         &StaffRepository{db: db},
		EnrollmentRepository:    &EnrollmentRepository{db: db, loc: loc},
		AttendanceRepository:    &AttendanceRepository{db: db},
		MakeupSessionRepository: &MakeupSessionRepository{db: db},
	}
}

// WithTx begins a transaction (or a savepoint when already inside one),
// rolls back if fn fails and commits otherwise.
func (s *PgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(newPgStore(tx, s.loc)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// mapErr converts driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}
