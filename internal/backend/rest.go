package backend

import (
	"context"
	"fmt"
	"sort"

	supabase "github.com/nedpals/supabase-go"
)

// RESTStore talks to the hosted PostgREST endpoint through the supabase SDK.
type RESTStore struct {
	client *supabase.Client
}

// NewRESTFactory returns a Factory that builds a RESTStore.
func NewRESTFactory() Factory {
	return func(_ context.Context, creds Credentials) (RowStore, error) {
		// CreateClient returns *supabase.Client (no error)
		client := supabase.CreateClient(creds.URL, creds.Key)
		if client == nil || client.DB == nil {
			return nil, fmt.Errorf("supabase client unavailable for %s", creds.URL)
		}
		return &RESTStore{client: client}, nil
	}
}

type execFunc func(r interface{}) error

type execResult struct {
	rows []Row
	err  error
}

// execute runs the SDK call in a goroutine so the caller can give up on ctx.
// The SDK decodes into a buffer owned by the goroutine.
func execute(ctx context.Context, exec execFunc) ([]Row, error) {
	done := make(chan execResult, 1)
	go func() {
		var rows []Row
		err := exec(&rows)
		done <- execResult{rows: rows, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.rows, res.err
	}
}

func (s *RESTStore) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	req := s.client.DB.From(table).Select("*")

	var exec execFunc = req.Execute
	if len(q.Filters) > 0 {
		f := req.Eq(q.Filters[0].Column, formatValue(q.Filters[0].Value))
		for _, extra := range q.Filters[1:] {
			f = f.Eq(extra.Column, formatValue(extra.Value))
		}
		exec = f.Execute
	}

	rows, err := execute(ctx, exec)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	SortRows(rows, q.OrderBy, q.Desc)
	return rows, nil
}

func (s *RESTStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	rows, err := execute(ctx, s.client.DB.From(table).Insert(row).Execute)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert %s: %w", table, ErrNoRows)
	}
	return rows[0], nil
}

func (s *RESTStore) Update(ctx context.Context, table string, f Filter, patch Row) (Row, error) {
	req := s.client.DB.From(table).Update(patch).Eq(f.Column, formatValue(f.Value))
	rows, err := execute(ctx, req.Execute)
	if err != nil {
		return nil, fmt.Errorf("update %s where %s: %w", table, f.Column, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("update %s where %s: %w", table, f.Column, ErrNoRows)
	}
	return rows[0], nil
}

func (s *RESTStore) Delete(ctx context.Context, table string, f Filter) error {
	req := s.client.DB.From(table).Delete().Eq(f.Column, formatValue(f.Value))
	if _, err := execute(ctx, req.Execute); err != nil {
		return fmt.Errorf("delete %s where %s: %w", table, f.Column, err)
	}
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// SortRows orders rows by column. Values are compared as text, which keeps
// ISO-8601 timestamps in chronological order.
func SortRows(rows []Row, column string, desc bool) {
	if column == "" {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a := sortKey(rows[i][column])
		b := sortKey(rows[j][column])
		if desc {
			return a > b
		}
		return a < b
	})
}

func sortKey(v any) string {
	if v == nil {
		return ""
	}
	return formatValue(v)
}
