package drivers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type SQLiteDriver struct {
	db *bun.DB
}

// NewSQLiteDriver opens a local sqlite database through sqliteshim, which
// picks whichever sqlite driver was compiled in.
func NewSQLiteDriver(ctx context.Context, dsn string, opts ...Option) (*SQLiteDriver, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	// A private in-memory database lives and dies with its connection.
	if strings.Contains(dsn, ":memory:") {
		sqldb.SetMaxOpenConns(1)
		sqldb.SetMaxIdleConns(1)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	return &SQLiteDriver{db: apply(bun.NewDB(sqldb, sqlitedialect.New()), opts)}, nil
}

func (d *SQLiteDriver) GetDB() *bun.DB {
	return d.db
}

func (d *SQLiteDriver) Close() error {
	return d.db.Close()
}
