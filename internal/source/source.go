// Package source provides uniform read access to external databases holding
// the text records a task mirrors. One adapter exists per supported engine
// (mysql, mssql, pgsql, sqlite), selected by the connection's db_type tag.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/mkrawiec/textsync/pkg/models"
)

// Sentinel errors for source failures.
var (
	// ErrUnreachable marks transient connectivity failures; callers retry
	// with backoff before giving up on the task.
	ErrUnreachable = errors.New("source unreachable")
	// ErrSchemaMismatch marks a missing table or column; fatal, no retry.
	ErrSchemaMismatch = errors.New("source schema mismatch")
	// ErrUnsupportedType marks an unknown db_type tag.
	ErrUnsupportedType = errors.New("unsupported source database type")
)

// Row is one record fetched from the remote source.
type Row struct {
	RemoteID int64
	Text     string
}

// Source is the capability interface the engine needs from a remote
// database. Implementations are read-only.
type Source interface {
	// DescribeSchema verifies that table, idCol and textCol exist,
	// returning ErrSchemaMismatch otherwise.
	DescribeSchema(ctx context.Context, table, idCol, textCol string) error
	// CountRows returns the total row count of table.
	CountRows(ctx context.Context, table string) (int64, error)
	// MaxKey returns the largest primary key value, 0 for an empty table.
	MaxKey(ctx context.Context, table, idCol string) (int64, error)
	// FetchPage returns up to limit rows with idCol > afterKey, ordered by
	// idCol ascending. NULL text is returned as the empty string.
	FetchPage(ctx context.Context, table, idCol, textCol string, afterKey int64, limit int) ([]Row, error)
	// FetchByKeys returns the rows whose idCol is in keys, ordered by
	// idCol ascending. Missing keys are silently absent from the result.
	FetchByKeys(ctx context.Context, table, idCol, textCol string, keys []int64) ([]Row, error)
	Close() error
}

var identifierRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateIdentifier rejects table/column names that cannot be safely
// interpolated into SQL. Identifiers come from task rows, not end users,
// but they still never reach a query unvalidated.
func ValidateIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

// Open connects to the source described by conn and verifies connectivity.
// The caller owns the returned Source and must Close it.
func Open(ctx context.Context, conn *models.DatabaseConnection) (Source, error) {
	d, ok := dialects[conn.DBType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, conn.DBType)
	}

	db, err := sql.Open(d.driver, d.dsn(conn))
	if err != nil {
		return nil, fmt.Errorf("open %s source: %w", conn.DBType, err)
	}
	db.SetMaxOpenConns(2)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s %q: %v", ErrUnreachable, conn.DBType, conn.Alias, err)
	}

	return &sqlSource{db: db, dialect: d}, nil
}
