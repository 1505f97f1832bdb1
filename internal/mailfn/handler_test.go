package mailfn

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ltgsite/internal/mail"
)

type fakeSigner struct {
	signed []string
	err    error
}

func (s *fakeSigner) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.signed = append(s.signed, key)
	return "https://files.example.de/" + key + "?ttl=" + ttl.String(), nil
}

type fakeSender struct {
	sent []mail.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newRouter(signer Signer, sender Sender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(signer, sender, Options{
		From:       "Website <noreply@example.de>",
		Recipients: []string{"buero@example.de"},
	}).Register(r, "/send-anfrage")
	return r
}

func call(r *gin.Engine, method, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/send-anfrage", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Error
}

const kontaktBody = `{"request_id":"r-1","type":"kontakt","name":"Erika","email":"erika@example.de","message":"Hallo <b>Team</b>","consent":true}`

func TestHandle_Preflight(t *testing.T) {
	w := call(newRouter(nil, nil), http.MethodOptions, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandle_RejectsBeforeSending(t *testing.T) {
	cases := []struct {
		name        string
		method      string
		contentType string
		body        string
		status      int
		want        string
	}{
		{"wrong method", http.MethodGet, "", "", http.StatusMethodNotAllowed, "Method not allowed"},
		{"plain text", http.MethodPost, "text/plain", kontaktBody, http.StatusBadRequest, "Invalid content-type (expected application/json)"},
		{"broken json", http.MethodPost, "application/json", `{"type":`, http.StatusBadRequest, "Invalid JSON body"},
		{"unknown type", http.MethodPost, "application/json", `{"type":"sonstiges","name":"a","email":"a@b.de","message":"x","consent":true}`, http.StatusBadRequest, "Invalid type"},
		{"missing fields", http.MethodPost, "application/json", `{"type":"kontakt","name":"a","email":"","message":"x","consent":true}`, http.StatusBadRequest, "Missing required fields"},
		{"bad email", http.MethodPost, "application/json", `{"type":"kontakt","name":"a","email":"ab.de","message":"x","consent":true}`, http.StatusBadRequest, "Invalid email"},
		{"consent as string", http.MethodPost, "application/json", `{"type":"kontakt","name":"a","email":"a@b.de","message":"x","consent":"true"}`, http.StatusBadRequest, "Consent missing"},
		{"path outside intake prefix", http.MethodPost, "application/json", `{"type":"angebot","name":"a","email":"a@b.de","message":"x","consent":true,"file_paths":["../secret"]}`, http.StatusBadRequest, "Invalid file path"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &fakeSender{}
			w := call(newRouter(&fakeSigner{}, sender), tc.method, tc.contentType, tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.want, errorOf(t, w))
			assert.Empty(t, sender.sent)
		})
	}
}

func TestHandle_OversizedBody(t *testing.T) {
	sender := &fakeSender{}
	body := `{"type":"kontakt","name":"a","email":"a@b.de","consent":true,"message":"` +
		strings.Repeat("x", maxRequestBytes) + `"}`

	w := call(newRouter(&fakeSigner{}, sender), http.MethodPost, "application/json", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "Payload too large", errorOf(t, w))
	assert.Empty(t, sender.sent)
}

func TestHandle_KontaktWithoutFiles(t *testing.T) {
	sender := &fakeSender{}
	w := call(newRouter(nil, sender), http.MethodPost, "application/json", kontaktBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "Neue Kontaktanfrage – Laila Thun Gebäudereinigung", msg.Subject)
	assert.Equal(t, []string{"buero@example.de"}, msg.To)
	assert.Equal(t, "erika@example.de", msg.ReplyTo)
	assert.Contains(t, msg.HTML, "Keine Dateien angehängt.")
	assert.Contains(t, msg.HTML, "Hallo &lt;b&gt;Team&lt;/b&gt;")
	assert.NotContains(t, msg.HTML, "Details (Angebot)")
	assert.Contains(t, msg.Text, "Dateien: keine")
	assert.True(t, strings.HasSuffix(msg.Text, "Quelle: anfrage.html"))
}

func TestHandle_AngebotSignsEveryPath(t *testing.T) {
	signer := &fakeSigner{}
	sender := &fakeSender{}
	body := `{"type":"angebot","name":"Erika","email":"erika@example.de","message":"Bitte Angebot",` +
		`"service_type":"Büro","consent":true,"source":"formular",` +
		`"file_paths":["anfragen/2026-02/r-1/a.jpg"," ","anfragen/2026-02/r-1/b.pdf"]}`

	w := call(newRouter(signer, sender), http.MethodPost, "application/json", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, []string{"anfragen/2026-02/r-1/a.jpg", "anfragen/2026-02/r-1/b.pdf"}, signer.signed)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "Neue Angebotsanfrage – Laila Thun Gebäudereinigung", msg.Subject)
	assert.Contains(t, msg.HTML, "Details (Angebot)")
	assert.Contains(t, msg.HTML, "Art der Reinigung:</strong> Büro")
	assert.Contains(t, msg.HTML, "<strong>Adresse / Ort:</strong> -")
	assert.Contains(t, msg.Text, "- anfragen/2026-02/r-1/a.jpg: https://files.example.de/anfragen/2026-02/r-1/a.jpg?ttl=168h0m0s")
	assert.True(t, strings.HasSuffix(msg.Text, "Quelle: formular"))
}

func TestHandle_Failures(t *testing.T) {
	withFile := `{"type":"angebot","name":"a","email":"a@b.de","message":"x","consent":true,"file_paths":["anfragen/2026-02/r/a.jpg"]}`

	t.Run("storage not configured", func(t *testing.T) {
		w := call(newRouter(nil, &fakeSender{}), http.MethodPost, "application/json", withFile)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Storage not configured (service credentials missing)", errorOf(t, w))
	})

	t.Run("signing fails", func(t *testing.T) {
		sender := &fakeSender{}
		w := call(newRouter(&fakeSigner{err: errors.New("object not found")}, sender), http.MethodPost, "application/json", withFile)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Signed URL failed: object not found", errorOf(t, w))
		assert.Empty(t, sender.sent)
	})

	t.Run("mail not configured", func(t *testing.T) {
		w := call(newRouter(nil, &fakeSender{err: mail.ErrNotConfigured}), http.MethodPost, "application/json", kontaktBody)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Mail not configured (RESEND_API_KEY missing)", errorOf(t, w))
	})

	t.Run("provider rejects", func(t *testing.T) {
		sender := &fakeSender{err: &mail.ProviderError{Status: 422, Body: `{"message":"invalid from"}`}}
		w := call(newRouter(nil, sender), http.MethodPost, "application/json", kontaktBody)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, `Mail send failed: {"message":"invalid from"}`, errorOf(t, w))
	})
}
