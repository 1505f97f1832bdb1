package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ltgsite/internal/drafts"
	"ltgsite/internal/errcode"
	"ltgsite/internal/jobs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testDebounce = 20 * time.Millisecond

type fakeJobs struct {
	mu       sync.Mutex
	postings []jobs.Posting
	err      error
	listErr  error
	created  []jobs.Fields
	updates  map[string]jobs.Patch
	deleted  []string
	nextID   int
	listCall int
}

func newFakeJobs(ps ...jobs.Posting) *fakeJobs {
	return &fakeJobs{postings: ps, updates: map[string]jobs.Patch{}}
}

func (f *fakeJobs) List(context.Context) ([]jobs.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCall++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]jobs.Posting(nil), f.postings...), nil
}

func (f *fakeJobs) Get(_ context.Context, id string) (jobs.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.postings {
		if p.ID == id {
			return p, nil
		}
	}
	return jobs.Posting{}, errcode.DataAccessError("jobs.get", errors.New("Job nicht gefunden."))
}

func (f *fakeJobs) Create(_ context.Context, in jobs.Fields) (jobs.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return jobs.Posting{}, f.err
	}
	f.nextID++
	f.created = append(f.created, in)
	p := jobs.Posting{ID: fmt.Sprintf("job-%d", f.nextID), Title: in.Title, Type: in.Type, Location: in.Location, Published: in.Published}
	f.postings = append(f.postings, p)
	return p, nil
}

func (f *fakeJobs) Update(_ context.Context, id string, p jobs.Patch) (jobs.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return jobs.Posting{}, f.err
	}
	f.updates[id] = p
	for i := range f.postings {
		if f.postings[i].ID == id && p.Published != nil {
			f.postings[i].Published = *p.Published
		}
	}
	return jobs.Posting{ID: id}, nil
}

func (f *fakeJobs) SetPublished(ctx context.Context, id string, published bool) (jobs.Posting, error) {
	return f.Update(ctx, id, jobs.PublishedOnly(published))
}

func (f *fakeJobs) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type countingDrafts struct {
	*drafts.MemoryStore
	mu    sync.Mutex
	saves int
}

func (c *countingDrafts) Save(ctx context.Context, tab string, data []byte) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.MemoryStore.Save(ctx, tab, data)
}

func (c *countingDrafts) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

func hasDraft(t *testing.T, s drafts.Store, tab string) bool {
	t.Helper()
	_, err := s.Load(context.Background(), tab)
	return err == nil
}

func newTestController(t *testing.T, store JobStore, ds drafts.Store) (*Controller, *Toasts) {
	t.Helper()
	toasts := NewToasts()
	c := NewController("tab-1", store, ds, toasts, Options{
		Debounce: testDebounce,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(c.Close)
	return c, toasts
}

func fillValid(t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.ChangeAll(map[Field]string{
		FieldRole:     "Reinigungskraft",
		FieldType:     "minijob",
		FieldHours:    "12",
		FieldLocation: "kw",
	}))
}

func latest(t *testing.T, toasts *Toasts) Notice {
	t.Helper()
	n, ok := toasts.Latest()
	require.True(t, ok, "expected a notice")
	return n
}

func TestNext(t *testing.T) {
	s, ok := Next(StateClean, EventChange)
	assert.True(t, ok)
	assert.Equal(t, StateDirty, s)

	s, ok = Next(StateDirty, EventSaved)
	assert.True(t, ok)
	assert.Equal(t, StateClean, s)

	_, ok = Next(State("bogus"), EventChange)
	assert.False(t, ok)
}

func TestChange_MarksDirtyAndWritesDraftAfterDebounce(t *testing.T) {
	ds := &countingDrafts{MemoryStore: drafts.NewMemoryStore(0)}
	c, _ := newTestController(t, newFakeJobs(), ds)

	require.NoError(t, c.Change(FieldTasks, "Büros"))
	state, _ := c.State()
	assert.Equal(t, StateDirty, state)
	assert.False(t, hasDraft(t, ds, "tab-1"), "draft must wait for the debounce")

	assert.Eventually(t, func() bool { return hasDraft(t, ds, "tab-1") }, time.Second, 5*time.Millisecond)

	raw, err := ds.Load(context.Background(), "tab-1")
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, "Büros", snap.Job.Tasks)
	assert.False(t, snap.SavedAt.IsZero())
}

func TestChange_RapidEditsCoalesceIntoOneSnapshot(t *testing.T) {
	ds := &countingDrafts{MemoryStore: drafts.NewMemoryStore(0)}
	c, _ := newTestController(t, newFakeJobs(), ds)

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Change(FieldContact, fmt.Sprintf("mail-%d", i)))
	}
	assert.Eventually(t, func() bool { return ds.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, ds.count())
}

func TestChange_UnknownField(t *testing.T) {
	c, _ := newTestController(t, newFakeJobs(), nil)
	err := c.Change(Field("colour"), "blau")
	assert.True(t, errcode.Is(err, errcode.Validation))
	state, _ := c.State()
	assert.Equal(t, StateClean, state)
}

func TestSelectedRoleClearsFreeRole(t *testing.T) {
	c, _ := newTestController(t, newFakeJobs(), nil)
	require.NoError(t, c.Change(FieldRoleFree, "Fensterputzer"))
	require.NoError(t, c.Change(FieldRole, "Hausmeister"))

	f := c.Form()
	assert.Equal(t, "", f.RoleFree)
	assert.False(t, c.View().FreeRoleEnabled)
}

func TestChangeAll_AppliesRoleBeforeFreeRole(t *testing.T) {
	for i := 0; i < 200; i++ {
		c, _ := newTestController(t, newFakeJobs(), nil)
		require.NoError(t, c.Change(FieldRole, "Hausmeister"))
		require.NoError(t, c.ChangeAll(map[Field]string{
			FieldRole:     "",
			FieldRoleFree: "Fensterputzer",
		}))

		f := c.Form()
		require.Equal(t, "", f.Role, "run %d", i)
		require.Equal(t, "Fensterputzer", f.RoleFree, "run %d", i)
		c.Close()
	}
}

func TestChangeAll_UnknownFieldLeavesFormUntouched(t *testing.T) {
	c, _ := newTestController(t, newFakeJobs(), nil)
	err := c.ChangeAll(map[Field]string{
		FieldTasks:      "Büros",
		Field("colour"): "blau",
		Field("amount"): "3",
	})
	require.Error(t, err)
	assert.True(t, errcode.Is(err, errcode.Validation))
	assert.Equal(t, "Unbekanntes Feld: amount", errcode.MessageOf(err))
	assert.Equal(t, "", c.Form().Tasks)
	state, _ := c.State()
	assert.Equal(t, StateClean, state)
}

func TestSave_CreatesAndClearsState(t *testing.T) {
	ds := drafts.NewMemoryStore(0)
	store := newFakeJobs()
	c, toasts := newTestController(t, store, ds)

	fillValid(t, c)
	c.FlushDraft()
	require.True(t, hasDraft(t, ds, "tab-1"))

	require.NoError(t, c.Save(context.Background()))

	require.Len(t, store.created, 1)
	got := store.created[0]
	assert.Equal(t, "Reinigungskraft", got.Title)
	assert.Equal(t, "Königs Wusterhausen", got.Location)
	assert.Contains(t, got.Preview, "Minijob · 12 Std./Woche · Königs Wusterhausen")

	state, editing := c.State()
	assert.Equal(t, StateClean, state)
	assert.Empty(t, editing)
	assert.Equal(t, Form{}, c.Form())
	assert.False(t, hasDraft(t, ds, "tab-1"))
	assert.Equal(t, "Gespeichert.", latest(t, toasts).Message)
}

func TestSave_UpdatesWhenEditing(t *testing.T) {
	store := newFakeJobs(jobs.Posting{ID: "j-1", Title: "Hausmeister", Type: "teilzeit", Location: "Wildau"})
	c, _ := newTestController(t, store, nil)

	require.NoError(t, c.Edit(context.Background(), "j-1", nil))
	require.NoError(t, c.Change(FieldHours, "25"))
	require.NoError(t, c.Save(context.Background()))

	patch, ok := store.updates["j-1"]
	require.True(t, ok)
	require.NotNil(t, patch.Hours)
	assert.Equal(t, "25", *patch.Hours)
	assert.Equal(t, "Hausmeister", *patch.Title)
	assert.Empty(t, store.created)
}

func TestSave_ValidationErrorMakesNoCall(t *testing.T) {
	store := newFakeJobs()
	c, toasts := newTestController(t, store, nil)

	require.NoError(t, c.Change(FieldType, "minijob"))
	err := c.Save(context.Background())
	require.Error(t, err)
	assert.True(t, errcode.Is(err, errcode.Validation))
	assert.Equal(t, "Bitte Jobrolle wählen oder bei „Sonstiges“ eine Jobrolle eingeben.", latest(t, toasts).Message)

	require.NoError(t, c.Change(FieldRoleFree, "Aushilfe"))
	err = c.Save(context.Background())
	assert.Equal(t, "Bitte Ort/Region ausfüllen.", errcode.MessageOf(err))
	assert.Empty(t, store.created)
}

func TestSave_FailureLeavesStateUnchanged(t *testing.T) {
	store := newFakeJobs(jobs.Posting{ID: "j-1", Title: "Hausmeister", Type: "teilzeit", Location: "Wildau"})
	ds := drafts.NewMemoryStore(0)
	c, toasts := newTestController(t, store, ds)

	require.NoError(t, c.Edit(context.Background(), "j-1", nil))
	require.NoError(t, c.Change(FieldTasks, "Rasen mähen"))
	before := c.Form()

	store.err = errcode.DataAccessError("jobs.update", errors.New("permission denied"))
	err := c.Save(context.Background())
	require.Error(t, err)
	assert.True(t, errcode.Is(err, errcode.DataAccess))

	state, editing := c.State()
	assert.Equal(t, StateDirty, state)
	assert.Equal(t, "j-1", editing)
	assert.Equal(t, before, c.Form())

	n := latest(t, toasts)
	assert.Equal(t, KindError, n.Kind)
	assert.Equal(t, "permission denied", n.Message)
}

func TestLoad_RestoresDraftIntoEmptyForm(t *testing.T) {
	ds := drafts.NewMemoryStore(0)
	snap, _ := json.Marshal(Snapshot{EditingID: "j-7", Job: Form{Role: "Hausmeister", Location: "Zeuthen"}})
	require.NoError(t, ds.Save(context.Background(), "tab-1", snap))

	c, toasts := newTestController(t, newFakeJobs(), ds)
	view := c.Load(context.Background())

	state, editing := c.State()
	assert.Equal(t, StateDirty, state)
	assert.Equal(t, "j-7", editing)
	assert.Equal(t, "Zeuthen", c.Form().Location)
	assert.Equal(t, ListEmpty, view.Message)

	var warned bool
	for _, n := range toasts.Active() {
		if n.Kind == KindWarn && n.Message == "Entwurf wiederhergestellt (Reload-Schutz)." {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestLoad_IgnoresDraftWhenFormHasInput(t *testing.T) {
	ds := drafts.NewMemoryStore(0)
	snap, _ := json.Marshal(Snapshot{Job: Form{Location: "Zeuthen"}})
	require.NoError(t, ds.Save(context.Background(), "tab-1", snap))

	c, _ := newTestController(t, newFakeJobs(), ds)
	c.form.Contact = "info@example.de"

	c.Load(context.Background())
	state, _ := c.State()
	assert.Equal(t, StateClean, state)
	assert.Equal(t, "", c.Form().Location)
}

func TestNavigationRequiresConfirmationWhenDirty(t *testing.T) {
	store := newFakeJobs(jobs.Posting{ID: "j-1", Title: "Hausmeister"})
	c, _ := newTestController(t, store, nil)
	ctx := context.Background()

	require.NoError(t, c.Change(FieldTasks, "x"))

	var cr *ConfirmationRequired
	err := c.Reset(ctx, Answer(false))
	require.ErrorAs(t, err, &cr)
	assert.Equal(t, "Es gibt ungespeicherte Änderungen.\n\nTrotzdem zurücksetzen?", cr.Question)

	require.ErrorAs(t, c.Edit(ctx, "j-1", Answer(false)), &cr)
	require.ErrorAs(t, c.Delete(ctx, "j-1", Answer(false)), &cr)
	require.ErrorAs(t, c.TogglePublished(ctx, "j-1", false, Answer(false)), &cr)
	require.ErrorAs(t, c.Logout(Answer(false)), &cr)
	assert.Equal(t, "Es gibt ungespeicherte Änderungen.\n\nTrotzdem ausloggen?", cr.Question)

	state, editing := c.State()
	assert.Equal(t, StateDirty, state)
	assert.Empty(t, editing)
	assert.Equal(t, "x", c.Form().Tasks)
	assert.Empty(t, store.deleted)
	assert.Empty(t, store.updates)

	require.NoError(t, c.Reset(ctx, Answer(true)))
	state, _ = c.State()
	assert.Equal(t, StateClean, state)
	assert.NoError(t, c.Logout(nil))
}

func TestDelete(t *testing.T) {
	store := newFakeJobs(jobs.Posting{ID: "j-1", Title: "Hausmeister"}, jobs.Posting{ID: "j-2", Title: "Aushilfe"})
	c, toasts := newTestController(t, store, nil)
	ctx := context.Background()
	c.RenderList(ctx)

	var cr *ConfirmationRequired
	require.ErrorAs(t, c.Delete(ctx, "j-2", nil), &cr)
	assert.Equal(t, "Job wirklich löschen?\n\nAushilfe", cr.Question)

	require.NoError(t, c.Edit(ctx, "j-2", nil))
	require.NoError(t, c.Delete(ctx, "j-2", Answer(true)))
	assert.Equal(t, []string{"j-2"}, store.deleted)
	_, editing := c.State()
	assert.Empty(t, editing, "deleting the edited job resets the form")
	assert.Equal(t, "Job gelöscht.", latest(t, toasts).Message)
}

func TestTogglePublished(t *testing.T) {
	store := newFakeJobs(jobs.Posting{ID: "j-1", Title: "Hausmeister"})
	c, toasts := newTestController(t, store, nil)
	ctx := context.Background()

	require.NoError(t, c.TogglePublished(ctx, "j-1", false, nil))
	assert.Equal(t, "Job veröffentlicht.", latest(t, toasts).Message)
	patch := store.updates["j-1"]
	require.NotNil(t, patch.Published)
	assert.True(t, *patch.Published)
	assert.Nil(t, patch.Title, "toggle must not touch other fields")

	require.NoError(t, c.TogglePublished(ctx, "j-1", true, nil))
	assert.Equal(t, "Job deaktiviert (Entwurf).", latest(t, toasts).Message)

	lists := store.listCall
	store.err = errors.New("rls policy")
	require.Error(t, c.TogglePublished(ctx, "j-1", true, nil))
	assert.Equal(t, lists+1, store.listCall, "list is re-rendered after a failed toggle")
	assert.Equal(t, KindError, latest(t, toasts).Kind)
}

func TestRenderList(t *testing.T) {
	store := newFakeJobs(
		jobs.Posting{ID: "1", Title: "Hausmeister", Type: "teilzeit", Hours: "20", Location: "Wildau", Published: true},
		jobs.Posting{ID: "2"},
	)
	c, toasts := newTestController(t, store, nil)

	v := c.RenderList(context.Background())
	require.Len(t, v.Items, 2)
	assert.Equal(t, "Teilzeit · 20 Std./Woche · Wildau · ✅ veröffentlicht", v.Items[0].Meta)
	assert.Equal(t, "Deaktivieren", v.Items[0].ToggleLabel)
	assert.Equal(t, "(Ohne Titel)", v.Items[1].Title)
	assert.Equal(t, "⏸️ Entwurf", v.Items[1].Meta)

	store.listErr = errcode.DataAccessError("jobs.list", errors.New("JWT expired"))
	v = c.RenderList(context.Background())
	assert.True(t, v.Failed)
	assert.Equal(t, ListLoadFailed, v.Message)
	assert.Empty(t, v.Items)
	assert.Equal(t, "JWT expired", latest(t, toasts).Message)
}

func TestView(t *testing.T) {
	c, _ := newTestController(t, newFakeJobs(), nil)

	v := c.View()
	assert.Equal(t, "Job speichern", v.SaveLabel)
	assert.Empty(t, v.Banner)
	assert.Contains(t, v.Preview, "Reinigungskraft (m/w/d)")

	require.NoError(t, c.Change(FieldTasks, "Treppenhaus"))
	v = c.View()
	assert.Equal(t, "Job speichern *", v.SaveLabel)
	assert.Equal(t, bannerUnsaved, v.Banner)

	require.NoError(t, c.Change(FieldPublished, "true"))
	assert.Equal(t, bannerPublished, c.View().Banner)
}

func TestExport(t *testing.T) {
	store := newFakeJobs(jobs.Posting{ID: "1", Title: "Hausmeister"})
	c, toasts := newTestController(t, store, nil)

	out, err := c.Export(context.Background())
	require.NoError(t, err)
	var decoded []jobs.Posting
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "Hausmeister", decoded[0].Title)
	assert.Contains(t, string(out), "\n  {")
	assert.Equal(t, "jobs.json exportiert.", latest(t, toasts).Message)

	empty, err := ExportJSON(context.Background(), newFakeJobs())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestToastsExpire(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := NewToasts()
	ts.now = func() time.Time { return now }

	ts.Notify(KindInfo, "a")
	now = now.Add(time.Second)
	ts.Notify(KindInfo, "b")
	assert.Len(t, ts.Active(), 2)

	now = now.Add(2 * time.Second)
	active := ts.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].Message)
}

func TestSessions(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSessions(newFakeJobs(), drafts.NewMemoryStore(0), time.Hour, Options{
		Debounce: testDebounce,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:    func() time.Time { return now },
	})
	defer s.CloseAll()

	a, created := s.Get("a")
	assert.True(t, created)
	again, created := s.Get("a")
	assert.False(t, created)
	assert.Same(t, a, again)

	s.Get("b")
	assert.Equal(t, 2, s.Len())

	now = now.Add(2 * time.Hour)
	s.Get("c")
	assert.Equal(t, 1, s.Len(), "idle tabs are evicted")

	s.Remove("c")
	assert.Zero(t, s.Len())
}
