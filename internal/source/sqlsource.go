package source

import (
	"context"
	"database/sql"
	"fmt"
)

// sqlSource implements Source on top of database/sql for every dialect.
type sqlSource struct {
	db      *sql.DB
	dialect dialect
}

func (s *sqlSource) Close() error {
	return s.db.Close()
}

func (s *sqlSource) validate(table, idCol, textCol string) error {
	for _, name := range []string{table, idCol, textCol} {
		if err := ValidateIdentifier(name); err != nil {
			return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}
	}
	return nil
}

// DescribeSchema probes the table with a zero-row select; any error here
// means the table or one of the columns does not exist.
func (s *sqlSource) DescribeSchema(ctx context.Context, table, idCol, textCol string) error {
	if err := s.validate(table, idCol, textCol); err != nil {
		return err
	}
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE 1 = 0", idCol, textCol, table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%w: probe %s.%s/%s: %v", ErrSchemaMismatch, table, idCol, textCol, err)
	}
	return rows.Close()
}

func (s *sqlSource) CountRows(ctx context.Context, table string) (int64, error) {
	if err := ValidateIdentifier(table); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count %s: %v", ErrUnreachable, table, err)
	}
	return count, nil
}

func (s *sqlSource) MaxKey(ctx context.Context, table, idCol string) (int64, error) {
	if err := ValidateIdentifier(table); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if err := ValidateIdentifier(idCol); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	var max sql.NullInt64
	query := fmt.Sprintf("SELECT MAX(%s) FROM %s", idCol, table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return 0, fmt.Errorf("%w: max key of %s: %v", ErrUnreachable, table, err)
	}
	return max.Int64, nil
}

func (s *sqlSource) FetchPage(ctx context.Context, table, idCol, textCol string, afterKey int64, limit int) ([]Row, error) {
	if err := s.validate(table, idCol, textCol); err != nil {
		return nil, err
	}
	query := s.dialect.pageQuery(table, idCol, textCol, limit)
	rows, err := s.db.QueryContext(ctx, query, afterKey)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch page after %d: %v", ErrUnreachable, afterKey, err)
	}
	return collectRows(rows)
}

func (s *sqlSource) FetchByKeys(ctx context.Context, table, idCol, textCol string, keys []int64) ([]Row, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if err := s.validate(table, idCol, textCol); err != nil {
		return nil, err
	}
	query := s.dialect.keysQuery(table, idCol, textCol, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %d keys: %v", ErrUnreachable, len(keys), err)
	}
	return collectRows(rows)
}

func collectRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var id int64
		var text sql.NullString
		if err := rows.Scan(&id, &text); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		out = append(out, Row{RemoteID: id, Text: text.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate source rows: %v", ErrUnreachable, err)
	}
	return out, nil
}
