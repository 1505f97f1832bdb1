package backend

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresStore reaches the same tables directly over SQL. Statements are
// built by hand because column names come from the fallback strategies, not
// from Go structs.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore wraps an open GORM handle.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresFactory returns a Factory that opens the database via open on
// first use.
func NewPostgresFactory(open func() (*gorm.DB, error)) Factory {
	return func(_ context.Context, _ Credentials) (RowStore, error) {
		db, err := open()
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(db), nil
	}
}

func quoteIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return `"` + name + `"`, nil
}

func (s *PostgresStore) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	tbl, err := quoteIdent(table)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT * FROM " + tbl)
	args := make([]any, 0, len(q.Filters))
	for i, f := range q.Filters {
		col, err := quoteIdent(f.Column)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(col + " = ?")
		args = append(args, f.Value)
	}
	if q.OrderBy != "" {
		col, err := quoteIdent(q.OrderBy)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" ORDER BY " + col)
		if q.Desc {
			sb.WriteString(" DESC")
		}
	}

	var out []map[string]any
	if err := s.db.WithContext(ctx).Raw(sb.String(), args...).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return toRows(out), nil
}

func (s *PostgresStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	tbl, err := quoteIdent(table)
	if err != nil {
		return nil, err
	}
	cols, args, err := sortedColumns(row)
	if err != nil {
		return nil, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *", tbl, strings.Join(cols, ", "), placeholders)

	var out []map[string]any
	if err := s.db.WithContext(ctx).Raw(stmt, args...).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("insert %s: %w", table, ErrNoRows)
	}
	return toRow(out[0]), nil
}

func (s *PostgresStore) Update(ctx context.Context, table string, f Filter, patch Row) (Row, error) {
	tbl, err := quoteIdent(table)
	if err != nil {
		return nil, err
	}
	where, err := quoteIdent(f.Column)
	if err != nil {
		return nil, err
	}
	cols, args, err := sortedColumns(patch)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("update %s: empty patch", table)
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ? RETURNING *", tbl, strings.Join(sets, ", "), where)
	args = append(args, f.Value)

	var out []map[string]any
	if err := s.db.WithContext(ctx).Raw(stmt, args...).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("update %s where %s: %w", table, f.Column, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("update %s where %s: %w", table, f.Column, ErrNoRows)
	}
	return toRow(out[0]), nil
}

func (s *PostgresStore) Delete(ctx context.Context, table string, f Filter) error {
	tbl, err := quoteIdent(table)
	if err != nil {
		return err
	}
	where, err := quoteIdent(f.Column)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", tbl, where)
	if err := s.db.WithContext(ctx).Exec(stmt, f.Value).Error; err != nil {
		return fmt.Errorf("delete %s where %s: %w", table, f.Column, err)
	}
	return nil
}

func sortedColumns(row Row) ([]string, []any, error) {
	names := make([]string, 0, len(row))
	for k := range row {
		names = append(names, k)
	}
	sort.Strings(names)

	cols := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		quoted, err := quoteIdent(name)
		if err != nil {
			return nil, nil, err
		}
		cols[i] = quoted
		args[i] = row[name]
	}
	return cols, args, nil
}

func toRows(in []map[string]any) []Row {
	rows := make([]Row, 0, len(in))
	for _, m := range in {
		rows = append(rows, toRow(m))
	}
	return rows
}

// toRow converts driver values to the JSON-like shapes the REST driver yields.
func toRow(in map[string]any) Row {
	row := make(Row, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case time.Time:
			row[k] = val.UTC().Format(time.RFC3339Nano)
		case []byte:
			row[k] = string(val)
		default:
			row[k] = val
		}
	}
	return row
}
