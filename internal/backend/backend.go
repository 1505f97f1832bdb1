// Package backend holds the single entry point to the hosted database service.
//
// A Provider validates credentials and lazily builds one RowStore handle. The
// handle is cached for the lifetime of the Provider; callers receive the
// Provider from the composition root instead of reaching for a global.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"ltgsite/internal/errcode"
)

// MinKeyLength is the shortest accepted API key. Real publishable and
// service keys are well above this; shorter values are placeholders.
const MinKeyLength = 40

// ErrNoRows is returned by Update when the filter matched nothing.
var ErrNoRows = errors.New("no rows returned")

// Row is one stored record as returned by the remote store. Column names vary
// between deployments, so rows stay untyped until the jobs mapper sees them.
type Row map[string]any

// Filter restricts a query or mutation to rows whose Column equals Value.
type Filter struct {
	Column string
	Value  any
}

// Query describes a select.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
}

// RowStore is the subset of the hosted database the application needs.
type RowStore interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, f Filter, patch Row) (Row, error)
	Delete(ctx context.Context, table string, f Filter) error
}

// Credentials identify the hosted project.
type Credentials struct {
	URL string
	Key string
}

// Factory builds a RowStore from validated credentials.
type Factory func(ctx context.Context, creds Credentials) (RowStore, error)

// Provider lazily constructs and caches the RowStore.
type Provider struct {
	creds   Credentials
	factory Factory
	timeout time.Duration

	mu     sync.Mutex
	client RowStore
	builds int
}

// NewProvider returns a Provider. Nothing is validated or dialed until Ensure.
func NewProvider(creds Credentials, factory Factory, timeout time.Duration) *Provider {
	return &Provider{creds: creds, factory: factory, timeout: timeout}
}

// Ensure returns the cached RowStore, building it on the first call.
func (p *Provider) Ensure(ctx context.Context) (RowStore, error) {
	if err := ValidateCredentials(p.creds); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	if p.factory == nil {
		return nil, errcode.ConfigurationError("backend.ensure", "Backend SDK nicht verfügbar (Factory fehlt).")
	}

	store, err := p.factory(ctx, p.creds)
	if err != nil {
		return nil, fmt.Errorf("init backend client: %w", err)
	}
	p.builds++
	if p.timeout > 0 {
		store = &timeoutStore{next: store, timeout: p.timeout}
	}
	p.client = store
	return p.client, nil
}

// Builds reports how many times the factory ran.
func (p *Provider) Builds() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.builds
}

// ValidateCredentials rejects empty, placeholder or malformed values.
func ValidateCredentials(c Credentials) error {
	rawURL := strings.TrimSpace(c.URL)
	key := strings.TrimSpace(c.Key)

	okURL := rawURL != "" && !strings.Contains(rawURL, "___") && isBaseURL(rawURL)
	okKey := key != "" && !strings.Contains(key, "___") && len(key) > MinKeyLength
	if !okURL || !okKey {
		return errcode.ConfigurationError("backend.credentials",
			"Backend ist nicht konfiguriert. Bitte SUPABASE_URL und SUPABASE_ANON_KEY setzen.")
	}
	return nil
}

func isBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// timeoutStore bounds every call so a hung request cannot block a caller forever.
type timeoutStore struct {
	next    RowStore
	timeout time.Duration
}

func (t *timeoutStore) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Select(ctx, table, q)
}

func (t *timeoutStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Insert(ctx, table, row)
}

func (t *timeoutStore) Update(ctx context.Context, table string, f Filter, patch Row) (Row, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Update(ctx, table, f, patch)
}

func (t *timeoutStore) Delete(ctx context.Context, table string, f Filter) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Delete(ctx, table, f)
}
