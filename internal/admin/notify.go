package admin

import (
	"sync"
	"time"
)

// ToastLifetime is how long a notification stays visible.
const ToastLifetime = 2400 * time.Millisecond

// Kind styles a notification.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarn    Kind = "warn"
	KindError   Kind = "error"
)

// Notice is one transient notification.
type Notice struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	Expires time.Time `json:"expires_at"`
}

// Notifier receives user-visible notifications.
type Notifier interface {
	Notify(kind Kind, msg string)
}

const maxToasts = 16

// Toasts is a Notifier that keeps recent notices until they expire. A
// newer notice does not hide older ones that are still live.
type Toasts struct {
	mu    sync.Mutex
	items []Notice
	now   func() time.Time
	ttl   time.Duration
}

// NewToasts returns an empty queue.
func NewToasts() *Toasts {
	return &Toasts{now: time.Now, ttl: ToastLifetime}
}

func (t *Toasts) Notify(kind Kind, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.items = append(t.items, Notice{Kind: kind, Message: msg, Expires: t.now().Add(t.ttl)})
	if len(t.items) > maxToasts {
		t.items = t.items[len(t.items)-maxToasts:]
	}
}

// Active returns the notices that have not yet expired, oldest first.
func (t *Toasts) Active() []Notice {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	live := t.items[:0]
	for _, n := range t.items {
		if now.Before(n.Expires) {
			live = append(live, n)
		}
	}
	t.items = live
	return append([]Notice(nil), live...)
}

// Latest returns the newest live notice.
func (t *Toasts) Latest() (Notice, bool) {
	active := t.Active()
	if len(active) == 0 {
		return Notice{}, false
	}
	return active[len(active)-1], true
}
