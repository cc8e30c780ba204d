package repository

import (
	"errors"
	"strings"

	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrFavoriteExists  = errors.New("favorite already exists")
	ErrInvalidPaginate = errors.New("invalid pagination")
)

// Page is one slice of an owner-scoped listing.
type Page[T any] struct {
	Items   []T
	Total   int
	HasMore bool
}

func newPage[T any](items []T, total, offset int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, HasMore: offset+len(items) < total}
}

func checkPaging(limit, offset int) error {
	if limit < 1 || offset < 0 {
		return ErrInvalidPaginate
	}
	return nil
}

// isUniqueViolation recognizes unique-constraint failures from postgres
// and from the sqlite family of drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.IntegrityViolation()
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
