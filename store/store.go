// Package store is the entity store: users, tags, categories, urls and
// posts with their association sets.
//
// Every mutating operation runs in one transaction. Errors are returned as
// *apperrors.Error: missing rows as NotFound, unique violations as Conflict
// and any other database failure as Persistence.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"pagetags/apperrors"
	"pagetags/pagination"
	"pagetags/validation"
)

type Store struct {
	db         *gorm.DB
	validate   *validation.Validator
	bcryptCost int
	maxPerPage int
}

type Option func(*Store)

// WithBcryptCost sets the cost used when hashing passwords.
func WithBcryptCost(cost int) Option {
	return func(s *Store) {
		s.bcryptCost = cost
	}
}

// WithMaxPerPage sets the largest page size listings accept.
func WithMaxPerPage(n int) Option {
	return func(s *Store) {
		s.maxPerPage = n
	}
}

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:         db,
		validate:   validation.New(),
		bcryptCost: 12,
		maxPerPage: pagination.DefaultMaxPerPage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxPerPage is the largest page size listings accept.
func (s *Store) MaxPerPage() int {
	return s.maxPerPage
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperrors.Persistence("database handle", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperrors.Persistence("ping database", err)
	}
	return nil
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// withTx runs fn in a transaction. Any error rolls the whole transaction
// back and comes out typed.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := s.conn(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	return translate(err, op, nil)
}

// translate maps a gorm error onto the error taxonomy. Typed errors pass
// through unchanged.
func translate(err error, what string, details any) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, what+" not found", err).WithDetails(details)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Wrap(apperrors.CodeConflict, what+" already exists", err).WithDetails(details)
	default:
		return apperrors.Persistence(what, err)
	}
}

// Stats counts the rows of every table.
type Stats struct {
	Users      int64
	Tags       int64
	Categories int64
	URLs       int64
	Posts      int64
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	db := s.conn(ctx)

	counts := []struct {
		table string
		dest  *int64
	}{
		{"users", &stats.Users},
		{"tags", &stats.Tags},
		{"categories", &stats.Categories},
		{"urls", &stats.URLs},
		{"posts", &stats.Posts},
	}
	for _, c := range counts {
		if err := db.Table(c.table).Count(c.dest).Error; err != nil {
			return nil, translate(err, "count "+c.table, nil)
		}
	}

	return &stats, nil
}

// uniqueNames drops exact duplicates, keeping the first occurrence.
func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}
