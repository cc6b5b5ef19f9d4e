package store

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pagetags/apperrors"
)

// getOrCreate reads the row keyed by column = value, inserting it with
// ON CONFLICT DO NOTHING when absent and reading it again. Concurrent
// callers converge on the row that won the unique constraint. A second
// miss means the winner is not visible yet and comes back as a retryable
// Conflict.
func getOrCreate[T any](tx *gorm.DB, column, value string, build func() *T) (*T, error) {
	var row T
	err := tx.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).Take(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: column}},
		DoNothing: true,
	}).Create(build()).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}

	var stored T
	err = tx.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).Take(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Conflict("concurrent create, retry").WithDetails(map[string]string{column: value})
	}
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
