package drivers

import (
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

type Driver interface {
	GetDB() *bun.DB
	Close() error
}

type Option func(db *bun.DB)

// WithQueryDebug logs every query through bundebug.
func WithQueryDebug(verbose bool) Option {
	return func(db *bun.DB) {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(verbose)))
	}
}

func apply(db *bun.DB, opts []Option) *bun.DB {
	for _, opt := range opts {
		opt(db)
	}
	return db
}
