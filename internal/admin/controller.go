// Package admin implements the job-posting form of the admin panel as a
// toolkit-independent controller: form binding, dirty tracking, a debounced
// draft snapshot for reload recovery, and the list actions.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"ltgsite/internal/drafts"
	"ltgsite/internal/errcode"
	"ltgsite/internal/jobs"
	"ltgsite/internal/preview"
)

// DefaultDebounce is the delay between the last edit and the draft snapshot.
const DefaultDebounce = 300 * time.Millisecond

const draftIOTimeout = 5 * time.Second

// JobStore is the job data access the controller needs. *jobs.Repository
// satisfies it.
type JobStore interface {
	List(ctx context.Context) ([]jobs.Posting, error)
	Get(ctx context.Context, id string) (jobs.Posting, error)
	Create(ctx context.Context, f jobs.Fields) (jobs.Posting, error)
	Update(ctx context.Context, id string, p jobs.Patch) (jobs.Posting, error)
	SetPublished(ctx context.Context, id string, published bool) (jobs.Posting, error)
	Delete(ctx context.Context, id string) error
}

// Snapshot is the persisted draft of one tab.
type Snapshot struct {
	EditingID string    `json:"editing_id,omitempty"`
	Job       Form      `json:"job"`
	SavedAt   time.Time `json:"saved_at"`
}

// Controller owns the form state of one admin tab. All methods are safe for
// concurrent use; they are serialized internally.
type Controller struct {
	tabID    string
	store    JobStore
	drafts   drafts.Store
	notifier Notifier
	logger   *slog.Logger
	debounce time.Duration
	now      func() time.Time

	mu        sync.Mutex
	form      Form
	state     State
	editingID string
	suppress  bool
	timer     *time.Timer
	timerGen  uint64
	listing   []jobs.Posting
	closed    bool
}

// Options tune a Controller.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
	Clock    func() time.Time
}

// NewController returns a Controller with an empty form in the clean state.
func NewController(tabID string, store JobStore, draftStore drafts.Store, notifier Notifier, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Controller{
		tabID:    tabID,
		store:    store,
		drafts:   draftStore,
		notifier: notifier,
		logger:   opts.Logger.With(slog.String("tab_id", tabID)),
		debounce: opts.Debounce,
		now:      opts.Clock,
		state:    StateClean,
	}
}

// TabID returns the tab this controller belongs to.
func (c *Controller) TabID() string { return c.tabID }

// Load runs once when the admin page opens: it offers draft recovery and
// renders the job list.
func (c *Controller) Load(ctx context.Context) ListView {
	c.mu.Lock()
	c.restoreDraftLocked(ctx)
	c.mu.Unlock()

	return c.RenderList(ctx)
}

func (c *Controller) restoreDraftLocked(ctx context.Context) {
	if c.drafts == nil || c.form.hasWatchedInput() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, draftIOTimeout)
	defer cancel()
	raw, err := c.drafts.Load(ctx, c.tabID)
	if err != nil {
		if !errors.Is(err, drafts.ErrNotFound) {
			c.logger.Warn("load draft failed", slog.Any("error", err))
		}
		return
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.Warn("discarding unreadable draft", slog.Any("error", err))
		return
	}

	c.suppress = true
	c.editingID = snap.EditingID
	c.form = snap.Job
	c.suppress = false

	c.transitionLocked(EventRestore)
	c.scheduleDraftLocked()
	c.notify(KindWarn, "Entwurf wiederhergestellt (Reload-Schutz).")
}

// Change records one edited field. Edits mark the form dirty and restart the
// draft timer unless dirty tracking is suppressed.
func (c *Controller) Change(field Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.form.set(field, value); err != nil {
		return err
	}
	if c.suppress {
		return nil
	}
	c.transitionLocked(EventChange)
	c.scheduleDraftLocked()
	return nil
}

// ChangeAll applies several edits as one change, in fieldOrder.
func (c *Controller) ChangeAll(values map[Field]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	unknown := make([]string, 0)
	for f := range values {
		if !knownField(f) {
			unknown = append(unknown, string(f))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errcode.ValidationError("admin.change", "Unbekanntes Feld: "+unknown[0])
	}

	next := c.form
	for _, f := range fieldOrder {
		v, ok := values[f]
		if !ok {
			continue
		}
		if err := next.set(f, v); err != nil {
			return err
		}
	}
	c.form = next
	if c.suppress || len(values) == 0 {
		return nil
	}
	c.transitionLocked(EventChange)
	c.scheduleDraftLocked()
	return nil
}

// Save validates the form and creates or updates the posting. On failure the
// form, dirty state and editing id are left as they were.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.form.validate(); err != nil {
		c.notify(KindError, errcode.MessageOf(err))
		return err
	}
	f := c.form.Fields()
	f.Preview = preview.Build(f)

	var err error
	if c.editingID != "" {
		_, err = c.store.Update(ctx, c.editingID, f.Patch())
	} else {
		_, err = c.store.Create(ctx, f)
	}
	if err != nil {
		c.notify(KindError, messageOr(err, "Speichern fehlgeschlagen."))
		return err
	}

	c.renderListLocked(ctx)
	c.resetFormLocked(ctx, EventSaved)
	c.notify(KindSuccess, "Gespeichert.")
	return nil
}

// Reset clears the form after confirmation if it is dirty.
func (c *Controller) Reset(ctx context.Context, confirm Confirmer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.confirmLeaveLocked(confirm, "zurücksetzen"); err != nil {
		return err
	}
	c.resetFormLocked(ctx, EventReset)
	c.notify(KindSuccess, "Zurückgesetzt.")
	return nil
}

// Edit loads a stored posting into the form.
func (c *Controller) Edit(ctx context.Context, id string, confirm Confirmer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.confirmLeaveLocked(confirm, "zum Bearbeiten wechseln"); err != nil {
		return err
	}
	p, err := c.store.Get(ctx, id)
	if err != nil {
		c.notify(KindError, messageOr(err, "Job konnte nicht geladen werden."))
		return err
	}

	c.cancelDraftLocked()
	c.suppress = true
	c.editingID = p.ID
	c.form = FormFromPosting(p)
	c.suppress = false
	c.transitionLocked(EventEdit)
	c.clearDraftLocked(ctx)
	return nil
}

// Delete removes a posting after both the leave and the delete confirmation.
func (c *Controller) Delete(ctx context.Context, id string, confirm Confirmer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.confirmLeaveLocked(confirm, "löschen"); err != nil {
		return err
	}
	q := "Job wirklich löschen?\n\n" + c.titleOfLocked(id)
	if !ask(confirm, q) {
		return &ConfirmationRequired{Question: q}
	}

	if err := c.store.Delete(ctx, id); err != nil {
		c.notify(KindError, messageOr(err, "Löschen fehlgeschlagen."))
		return err
	}
	if c.editingID == id {
		c.resetFormLocked(ctx, EventReset)
	}
	c.renderListLocked(ctx)
	c.notify(KindSuccess, "Job gelöscht.")
	return nil
}

// TogglePublished flips only the published flag of a posting. The list is
// re-rendered whatever the outcome.
func (c *Controller) TogglePublished(ctx context.Context, id string, current bool, confirm Confirmer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.confirmLeaveLocked(confirm, "den Status ändern"); err != nil {
		return err
	}

	_, err := c.store.SetPublished(ctx, id, !current)
	switch {
	case err != nil:
		c.notify(KindError, messageOr(err, "Status konnte nicht geändert werden."))
	case !current:
		c.notify(KindSuccess, "Job veröffentlicht.")
	default:
		c.notify(KindSuccess, "Job deaktiviert (Entwurf).")
	}
	c.renderListLocked(ctx)
	return err
}

// Logout asks for confirmation when the form is dirty. The caller ends the
// session on success.
func (c *Controller) Logout(confirm Confirmer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmLeaveLocked(confirm, "ausloggen")
}

// Close stops the pending draft timer. The controller must not be used after.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelDraftLocked()
	c.closed = true
}

// State returns the dirty state and the id being edited.
func (c *Controller) State() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.editingID
}

// Form returns a copy of the current form values.
func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

func (c *Controller) transitionLocked(e Event) {
	next, ok := Next(c.state, e)
	if !ok {
		c.logger.Error("rejected form transition", slog.String("state", string(c.state)), slog.String("event", string(e)))
		return
	}
	c.state = next
}

func (c *Controller) confirmLeaveLocked(confirm Confirmer, action string) error {
	if c.state != StateDirty {
		return nil
	}
	q := fmt.Sprintf("Es gibt ungespeicherte Änderungen.\n\nTrotzdem %s?", action)
	if ask(confirm, q) {
		return nil
	}
	return &ConfirmationRequired{Question: q}
}

func (c *Controller) resetFormLocked(ctx context.Context, e Event) {
	c.cancelDraftLocked()
	c.suppress = true
	c.editingID = ""
	c.form = Form{}
	c.suppress = false
	c.transitionLocked(e)
	c.clearDraftLocked(ctx)
}

// scheduleDraftLocked (re)starts the debounce timer. The previous timer is
// always stopped first so at most one snapshot is pending.
func (c *Controller) scheduleDraftLocked() {
	if c.closed || c.drafts == nil {
		return
	}
	c.cancelDraftLocked()
	gen := c.timerGen
	c.timer = time.AfterFunc(c.debounce, func() { c.flushDraft(gen) })
}

func (c *Controller) cancelDraftLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *Controller) flushDraft(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer schedule or a cancel happened while this one waited for the lock.
	if gen != c.timerGen || c.closed || c.state != StateDirty {
		return
	}
	c.timer = nil
	c.saveDraftLocked()
}

// FlushDraft writes the snapshot immediately if one is pending.
func (c *Controller) FlushDraft() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil || c.state != StateDirty {
		return
	}
	c.cancelDraftLocked()
	c.saveDraftLocked()
}

func (c *Controller) saveDraftLocked() {
	raw, err := json.Marshal(Snapshot{EditingID: c.editingID, Job: c.form, SavedAt: c.now().UTC()})
	if err != nil {
		c.logger.Error("encode draft failed", slog.Any("error", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), draftIOTimeout)
	defer cancel()
	if err := c.drafts.Save(ctx, c.tabID, raw); err != nil {
		c.logger.Warn("save draft failed", slog.Any("error", err))
	}
}

func (c *Controller) clearDraftLocked(ctx context.Context) {
	if c.drafts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), draftIOTimeout)
	defer cancel()
	if err := c.drafts.Delete(ctx, c.tabID); err != nil {
		c.logger.Warn("clear draft failed", slog.Any("error", err))
	}
}

func (c *Controller) titleOfLocked(id string) string {
	for _, p := range c.listing {
		if p.ID == id {
			return p.Title
		}
	}
	return id
}

func (c *Controller) notify(kind Kind, msg string) {
	if c.notifier != nil {
		c.notifier.Notify(kind, msg)
	}
}

func messageOr(err error, fallback string) string {
	if msg := errcode.MessageOf(err); msg != "" {
		return msg
	}
	return fallback
}
