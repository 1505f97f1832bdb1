package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ltgsite/internal/admin"
	"ltgsite/internal/auth"
	"ltgsite/internal/drafts"
	"ltgsite/internal/errcode"
	"ltgsite/internal/intake"
	"ltgsite/internal/jobs"
)

type fakeJobStore struct {
	mu       sync.Mutex
	postings []jobs.Posting
	created  []jobs.Fields
	listErr  error
}

func (f *fakeJobStore) List(context.Context) ([]jobs.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]jobs.Posting(nil), f.postings...), nil
}

func (f *fakeJobStore) ListPublished(ctx context.Context) ([]jobs.Posting, error) {
	all, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []jobs.Posting
	for _, p := range all {
		if p.Published {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeJobStore) Get(_ context.Context, id string) (jobs.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.postings {
		if p.ID == id {
			return p, nil
		}
	}
	return jobs.Posting{}, errcode.DataAccessError("jobs.get", errors.New("Job nicht gefunden."))
}

func (f *fakeJobStore) Create(_ context.Context, fields jobs.Fields) (jobs.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, fields)
	p := jobs.Posting{ID: "new", Title: fields.Title, Type: fields.Type, Location: fields.Location}
	f.postings = append(f.postings, p)
	return p, nil
}

func (f *fakeJobStore) Update(_ context.Context, id string, _ jobs.Patch) (jobs.Posting, error) {
	return f.Get(context.Background(), id)
}

func (f *fakeJobStore) SetPublished(_ context.Context, id string, published bool) (jobs.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.postings {
		if f.postings[i].ID == id {
			f.postings[i].Published = published
			return f.postings[i], nil
		}
	}
	return jobs.Posting{}, errcode.DataAccessError("jobs.update", errors.New("no rows"))
}

func (f *fakeJobStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.postings {
		if p.ID == id {
			f.postings = append(f.postings[:i], f.postings[i+1:]...)
			return nil
		}
	}
	return errcode.DataAccessError("jobs.delete", errors.New("no rows"))
}

type stubTokens struct{}

func (stubTokens) ValidateToken(token string) (*auth.TokenClaims, error) {
	if token != "admin-token" {
		return nil, errors.New("invalid")
	}
	return &auth.TokenClaims{Role: auth.AuthenticatedRole, RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}, nil
}

type stubAuth struct {
	signedOut []string
}

func (a *stubAuth) SignIn(_ context.Context, email, password string) (*auth.Session, error) {
	if password != "geheim" {
		return nil, auth.ErrInvalidCredentials
	}
	return &auth.Session{AccessToken: "admin-token", ExpiresIn: 3600, UserID: "user-1", Email: email}, nil
}

func (a *stubAuth) SignOut(_ context.Context, token string) error {
	a.signedOut = append(a.signedOut, token)
	return nil
}

type countingUploader struct{ calls int }

func (u *countingUploader) UploadFile(context.Context, string, io.Reader, int64, string) (*minio.UploadInfo, error) {
	u.calls++
	return &minio.UploadInfo{}, nil
}

type countingSender struct{ payloads []intake.Payload }

func (s *countingSender) Send(_ context.Context, p intake.Payload) error {
	s.payloads = append(s.payloads, p)
	return nil
}

type testServer struct {
	router   *gin.Engine
	store    *fakeJobStore
	sessions *admin.Sessions
	auth     *stubAuth
	uploader *countingUploader
	sender   *countingSender
}

func newTestServer(t *testing.T, postings ...jobs.Posting) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &fakeJobStore{postings: postings}
	sessions := admin.NewSessions(store, drafts.NewMemoryStore(time.Hour), 0, admin.Options{Debounce: time.Hour})
	t.Cleanup(sessions.CloseAll)

	uploader := &countingUploader{}
	sender := &countingSender{}
	authStub := &stubAuth{}

	router := NewRouter(RouterOptions{Server: "test"})
	RegisterRoutes(router, Deps{
		Jobs:     store,
		Intake:   intake.NewService(uploader, sender, intake.Options{}),
		Auth:     authStub,
		Tokens:   stubTokens{},
		Sessions: sessions,
	})
	return &testServer{router: router, store: store, sessions: sessions, auth: authStub, uploader: uploader, sender: sender}
}

func (s *testServer) do(method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) admin(method, path string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	headers := map[string]string{
		"Authorization": "Bearer admin-token",
		"X-Tab-ID":      "tab-1",
	}
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
		headers["Content-Type"] = "application/json"
	}
	return s.do(method, path, r, headers)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusOf(errcode.ValidationError("op", "x")))
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(errcode.ConfigurationError("op", "x")))
	assert.Equal(t, http.StatusBadGateway, StatusOf(errcode.DataAccessError("op", nil)))
	assert.Equal(t, http.StatusBadGateway, StatusOf(errcode.UploadError("op", "a.jpg", nil)))
	assert.Equal(t, http.StatusBadGateway, StatusOf(errcode.FunctionError("op", "x", nil)))
	assert.Equal(t, http.StatusConflict, StatusOf(&admin.ConfirmationRequired{Question: "?"}))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPublicJobs(t *testing.T) {
	s := newTestServer(t,
		jobs.Posting{ID: "1", Title: "Reinigungskraft (m/w/d)", Type: "minijob", Location: "Wildau", Published: true},
		jobs.Posting{ID: "2", Title: "Entwurf", Published: false},
	)

	w := s.do(http.MethodGet, "/v1/jobs", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	items := decode(t, w)["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "1", item["id"])
	assert.True(t, strings.HasPrefix(item["text"].(string), "Reinigungskraft (m/w/d)\nMinijob · Wildau"))
}

func TestPublicJobs_DataAccessFailure(t *testing.T) {
	s := newTestServer(t)
	s.store.listErr = errcode.DataAccessError("jobs.listPublished", errors.New("relation does not exist"))

	w := s.do(http.MethodGet, "/v1/jobs", nil, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "relation does not exist", decode(t, w)["error"])
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte(content))
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestIntake_MissingConsentNeverCallsBackend(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t, map[string]string{
		"type":    "angebot",
		"name":    "Erika",
		"email":   "erika@example.de",
		"message": "Hallo",
	}, map[string]string{"foto.jpg": "jpeg"})

	w := s.do(http.MethodPost, "/v1/anfrage", body, map[string]string{"Content-Type": ct})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Bitte Datenschutz-Einwilligung bestätigen.", decode(t, w)["error"])
	assert.Zero(t, s.uploader.calls)
	assert.Empty(t, s.sender.payloads)
}

func TestIntake_AngebotWithFile(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t, map[string]string{
		"type":         "angebot",
		"name":         "Erika",
		"email":        "erika@example.de",
		"message":      "Bitte Angebot",
		"service_type": "Büro",
		"consent":      "on",
	}, map[string]string{"foto.jpg": "jpeg"})

	w := s.do(http.MethodPost, "/v1/anfrage", body, map[string]string{"Content-Type": ct})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, SuccessMessage, out["message"])
	assert.Equal(t, 1, s.uploader.calls)
	require.Len(t, s.sender.payloads, 1)
	assert.Len(t, s.sender.payloads[0].FilePaths, 1)
}

func TestIntake_JSONKontakt(t *testing.T) {
	s := newTestServer(t)
	body := `{"type":"kontakt","name":"Max","email":"max@example.de","message":"Hallo","consent":true}`
	w := s.do(http.MethodPost, "/v1/anfrage", strings.NewReader(body), map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, s.sender.payloads, 1)
	assert.Equal(t, intake.Kontakt, s.sender.payloads[0].Type)
}

func TestAuth_Login(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"a@b.de","password":"falsch"}`),
		map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"a@b.de","password":"geheim"}`),
		map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-token", decode(t, w)["access_token"])
}

func TestAdmin_RequiresTokenAndTab(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/v1/admin/form", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/v1/admin/form", nil, map[string]string{"Authorization": "Bearer admin-token"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_FormFlow(t *testing.T) {
	s := newTestServer(t, jobs.Posting{ID: "1", Title: "Hausmeister", Type: "teilzeit", Location: "Wildau"})

	w := s.admin(http.MethodGet, "/v1/admin/form", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	list := out["list"].(map[string]any)
	assert.Len(t, list["items"], 1)

	w = s.admin(http.MethodPatch, "/v1/admin/form", map[string]any{"location": "kw"})
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)["view"].(map[string]any)
	assert.Equal(t, "dirty", view["state"])
	assert.Equal(t, "Job speichern *", view["save_label"])

	w = s.admin(http.MethodPost, "/v1/admin/form/reset", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Es gibt ungespeicherte Änderungen.\n\nTrotzdem zurücksetzen?", decode(t, w)["confirm"])

	w = s.admin(http.MethodPost, "/v1/admin/form/reset?confirm=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "clean", decode(t, w)["view"].(map[string]any)["state"])
}

func TestAdmin_SaveValidatesAndCreates(t *testing.T) {
	s := newTestServer(t)

	w := s.admin(http.MethodPost, "/v1/admin/form/save", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.admin(http.MethodPatch, "/v1/admin/form", map[string]any{
		"role":     "Reinigungskraft (m/w/d)",
		"type":     "minijob",
		"location": "königs wusterhausen",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.admin(http.MethodPost, "/v1/admin/form/save", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, s.store.created, 1)
	assert.Equal(t, "Königs Wusterhausen", s.store.created[0].Location)
	assert.NotEmpty(t, s.store.created[0].Preview)
}

func TestAdmin_TogglePublishedAndExport(t *testing.T) {
	s := newTestServer(t, jobs.Posting{ID: "1", Title: "Hausmeister", Type: "teilzeit", Location: "Wildau"})

	w := s.admin(http.MethodPost, "/v1/admin/jobs/1/publish", map[string]any{"published": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, s.store.postings[0].Published)

	w = s.admin(http.MethodGet, "/v1/admin/jobs/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "jobs.json")
	var exported []jobs.Posting
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exported))
	assert.Len(t, exported, 1)
}

func TestAdmin_DeleteNeedsConfirmation(t *testing.T) {
	s := newTestServer(t, jobs.Posting{ID: "1", Title: "Hausmeister", Type: "teilzeit", Location: "Wildau"})

	w := s.admin(http.MethodDelete, "/v1/admin/jobs/1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Len(t, s.store.postings, 1)

	w = s.admin(http.MethodDelete, "/v1/admin/jobs/1?confirm=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, s.store.postings)
}

func TestAuth_LogoutDirtyForm(t *testing.T) {
	s := newTestServer(t)

	w := s.admin(http.MethodPatch, "/v1/admin/form", map[string]any{"tasks": "Büros"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.admin(http.MethodPost, "/v1/auth/logout", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, s.auth.signedOut)

	w = s.admin(http.MethodPost, "/v1/auth/logout?confirm=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"admin-token"}, s.auth.signedOut)
	assert.Zero(t, s.sessions.Len())
}
