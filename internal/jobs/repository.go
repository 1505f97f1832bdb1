package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ltgsite/internal/backend"
	"ltgsite/internal/errcode"
	"ltgsite/internal/metrics"
)

// DefaultTable is the job posting table of current deployments.
const DefaultTable = "job_postings"

// StoreProvider hands out the backend handle. *backend.Provider satisfies it.
type StoreProvider interface {
	Ensure(ctx context.Context) (backend.RowStore, error)
}

// Repository performs job CRUD, trying each schema strategy in order until
// one is accepted by the store.
type Repository struct {
	provider StoreProvider
	table    string
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock replaces the clock used to stamp created_at.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// NewRepository builds a Repository on table (DefaultTable when empty).
func NewRepository(provider StoreProvider, table string, logger *slog.Logger, opts ...Option) *Repository {
	if table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{provider: provider, table: table, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// attempt is one candidate request shape of a fallback chain.
type attempt[T any] struct {
	strategy string
	run      func(ctx context.Context, store backend.RowStore) (T, error)
}

// tryChain runs attempts sequentially and returns the first success. When
// every attempt fails the last error is wrapped in a DataAccessError.
// Cancellation of ctx stops the chain.
func tryChain[T any](ctx context.Context, r *Repository, op string, attempts []attempt[T]) (T, error) {
	var zero T
	store, err := r.provider.Ensure(ctx)
	if err != nil {
		return zero, err
	}

	log := r.logger.With(slog.String("op", op), slog.String("table", r.table))
	var last error
	for _, a := range attempts {
		res, err := a.run(ctx, store)
		metrics.ObserveStrategy(op, a.strategy, err)
		if err == nil {
			log.Debug("job store attempt accepted", slog.String("strategy", a.strategy))
			return res, nil
		}
		log.Debug("job store attempt rejected", slog.String("strategy", a.strategy), slog.Any("error", err))
		last = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			last = ctxErr
			break
		}
	}
	log.Warn("job store operation failed", slog.Any("error", last))
	return zero, errcode.DataAccessError("jobs."+op, last)
}

// List returns every posting, newest first.
func (r *Repository) List(ctx context.Context) ([]Posting, error) {
	rows, err := tryChain(ctx, r, "list", []attempt[[]backend.Row]{{
		strategy: "all",
		run: func(ctx context.Context, s backend.RowStore) ([]backend.Row, error) {
			return s.Select(ctx, r.table, backend.Query{OrderBy: "created_at", Desc: true})
		},
	}})
	if err != nil {
		return nil, err
	}
	return NormalizeAll(rows), nil
}

// ListPublished returns published postings, newest first.
func (r *Repository) ListPublished(ctx context.Context) ([]Posting, error) {
	attempts := make([]attempt[[]backend.Row], 0, len(PublishedColumns))
	for _, col := range PublishedColumns {
		attempts = append(attempts, attempt[[]backend.Row]{
			strategy: col,
			run: func(ctx context.Context, s backend.RowStore) ([]backend.Row, error) {
				return s.Select(ctx, r.table, backend.Query{
					Filters: []backend.Filter{{Column: col, Value: true}},
					OrderBy: "created_at",
					Desc:    true,
				})
			},
		})
	}
	rows, err := tryChain(ctx, r, "list_published", attempts)
	if err != nil {
		return nil, err
	}
	return NormalizeAll(rows), nil
}

// Get returns the posting with the given identifier. It filters the full
// listing so it works under either identifier column.
func (r *Repository) Get(ctx context.Context, id string) (Posting, error) {
	if id == "" {
		return Posting{}, errcode.ValidationError("jobs.get", "Job-ID fehlt.")
	}
	all, err := r.List(ctx)
	if err != nil {
		return Posting{}, err
	}
	for _, p := range all {
		if p.ID == id {
			return p, nil
		}
	}
	return Posting{}, errcode.DataAccessError("jobs.get", errors.New("Job nicht gefunden."))
}

// Create inserts a posting. Fields are not validated here; callers check
// Fields.Validate first.
func (r *Repository) Create(ctx context.Context, f Fields) (Posting, error) {
	createdAt := r.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")

	attempts := make([]attempt[backend.Row], 0, len(Mappings))
	for _, m := range Mappings {
		row := m.Row(f.Patch())
		row["created_at"] = createdAt
		attempts = append(attempts, attempt[backend.Row]{
			strategy: m.Name,
			run: func(ctx context.Context, s backend.RowStore) (backend.Row, error) {
				return s.Insert(ctx, r.table, row)
			},
		})
	}
	row, err := tryChain(ctx, r, "create", attempts)
	if err != nil {
		return Posting{}, err
	}
	return Normalize(row), nil
}

// Update writes the set fields of p to the posting identified by id.
func (r *Repository) Update(ctx context.Context, id string, p Patch) (Posting, error) {
	if id == "" {
		return Posting{}, errcode.ValidationError("jobs.update", "updateJobDb: id fehlt.")
	}
	if p.Empty() {
		return Posting{}, errcode.ValidationError("jobs.update", "Keine Änderungen angegeben.")
	}

	attempts := make([]attempt[backend.Row], 0, len(Mappings)*len(IDColumns))
	for _, m := range Mappings {
		patch := m.Row(p)
		for _, idCol := range IDColumns {
			attempts = append(attempts, attempt[backend.Row]{
				strategy: m.Name + "/" + idCol,
				run: func(ctx context.Context, s backend.RowStore) (backend.Row, error) {
					return s.Update(ctx, r.table, backend.Filter{Column: idCol, Value: id}, patch)
				},
			})
		}
	}
	row, err := tryChain(ctx, r, "update", attempts)
	if err != nil {
		return Posting{}, err
	}
	return Normalize(row), nil
}

// SetPublished flips only the published flag.
func (r *Repository) SetPublished(ctx context.Context, id string, published bool) (Posting, error) {
	return r.Update(ctx, id, PublishedOnly(published))
}

// Delete removes the posting identified by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errcode.ValidationError("jobs.delete", "deleteJobDb: id fehlt.")
	}

	attempts := make([]attempt[struct{}], 0, len(IDColumns))
	for _, idCol := range IDColumns {
		attempts = append(attempts, attempt[struct{}]{
			strategy: idCol,
			run: func(ctx context.Context, s backend.RowStore) (struct{}, error) {
				return struct{}{}, s.Delete(ctx, r.table, backend.Filter{Column: idCol, Value: id})
			},
		})
	}
	_, err := tryChain(ctx, r, "delete", attempts)
	return err
}
