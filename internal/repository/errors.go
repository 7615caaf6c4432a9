package repository

import (
	"errors"
	"fmt"

	"practice/internal/store"
	"practice/pkg/pagination"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is shared with the in-memory store so errors.Is works for both drivers.
	ErrNotFound = store.ErrNotFound
	// ErrDuplicateEmail is returned when a user with the same email already exists.
	ErrDuplicateEmail = errors.New("email already exists")
)

// translate maps gorm errors onto the repository sentinels.
func translate(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	default:
		return err
	}
}

// page slices items for the given 1-based page; limit <= 0 returns everything.
func page[T any](items []T, pageNum, limit int) []T {
	if limit <= 0 {
		return items
	}
	start, end := pagination.New(pageNum, limit).Bounds(len(items))
	return items[start:end]
}

func scopePage(pageNum, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		p := pagination.New(pageNum, limit)
		return db.Offset(p.Offset).Limit(p.Limit)
	}
}
