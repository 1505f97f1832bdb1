// Package drafts persists the admin form's draft snapshot per browser tab so a
// reload can offer recovery. Snapshots are opaque JSON blobs.
package drafts

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Load when a tab has no live snapshot.
var ErrNotFound = errors.New("draft not found")

// Store holds at most one snapshot per tab id.
type Store interface {
	Save(ctx context.Context, tabID string, data []byte) error
	Load(ctx context.Context, tabID string) ([]byte, error)
	Delete(ctx context.Context, tabID string) error
}

// Purger drops snapshots written before the cutoff.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Driver names accepted by config.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

func checkTab(tabID string) error {
	if tabID == "" {
		return fmt.Errorf("draft: empty tab id")
	}
	return nil
}
