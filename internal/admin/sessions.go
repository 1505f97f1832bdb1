package admin

import (
	"sync"
	"time"

	"ltgsite/internal/drafts"
)

// Session is the per-tab admin state: a form controller and its toasts.
type Session struct {
	Controller *Controller
	Toasts     *Toasts

	lastUsed time.Time
}

// Sessions keeps one Session per admin tab and drops tabs idle for longer
// than idle.
type Sessions struct {
	store  JobStore
	drafts drafts.Store
	opts   Options
	idle   time.Duration
	now    func() time.Time

	mu   sync.Mutex
	tabs map[string]*Session
}

// NewSessions returns an empty registry.
func NewSessions(store JobStore, draftStore drafts.Store, idle time.Duration, opts Options) *Sessions {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Sessions{
		store:  store,
		drafts: draftStore,
		opts:   opts,
		idle:   idle,
		now:    now,
		tabs:   make(map[string]*Session),
	}
}

// Get returns the session of tabID, creating it on first use. The second
// result is true when the session was just created.
func (s *Sessions) Get(tabID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	if sess, ok := s.tabs[tabID]; ok {
		sess.lastUsed = now
		return sess, false
	}
	toasts := NewToasts()
	sess := &Session{
		Controller: NewController(tabID, s.store, s.drafts, toasts, s.opts),
		Toasts:     toasts,
		lastUsed:   now,
	}
	s.tabs[tabID] = sess
	return sess, true
}

// Remove closes and forgets the session of tabID. The draft snapshot stays
// in the draft store.
func (s *Sessions) Remove(tabID string) {
	s.mu.Lock()
	sess, ok := s.tabs[tabID]
	delete(s.tabs, tabID)
	s.mu.Unlock()

	if ok {
		sess.Controller.Close()
	}
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tabs)
}

// CloseAll closes every session, flushing pending drafts first.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	tabs := s.tabs
	s.tabs = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range tabs {
		sess.Controller.FlushDraft()
		sess.Controller.Close()
	}
}

func (s *Sessions) sweepLocked(now time.Time) {
	if s.idle <= 0 {
		return
	}
	for id, sess := range s.tabs {
		if now.Sub(sess.lastUsed) > s.idle {
			sess.Controller.FlushDraft()
			sess.Controller.Close()
			delete(s.tabs, id)
		}
	}
}
