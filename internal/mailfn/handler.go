package mailfn

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ltgsite/internal/mail"
	"ltgsite/internal/metrics"
	"ltgsite/internal/reqctx"
	"ltgsite/internal/storage"
)

// maxRequestBytes bounds the JSON payload. It carries text fields and
// object keys only, never file contents.
const maxRequestBytes = 64 << 10

// Signer mints time-limited download links.
type Signer interface {
	SignedURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

// Sender delivers a composed mail.
type Sender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Options configures the function.
type Options struct {
	From       string
	Recipients []string
	Source     string
	LinkTTL    time.Duration
	Logger     *slog.Logger
}

// Handler serves the send-anfrage function.
type Handler struct {
	signer Signer
	sender Sender
	opts   Options
}

// NewHandler returns the function handler. A nil signer fails requests that
// carry file paths; a nil sender fails every valid request.
func NewHandler(signer Signer, sender Sender, opts Options) *Handler {
	if opts.Source == "" {
		opts.Source = "anfrage.html"
	}
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = storage.SignedLinkTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{signer: signer, sender: sender, opts: opts}
}

// Register mounts the function under path for every method, so the handler
// can answer preflight and wrong-method requests itself.
func (h *Handler) Register(router gin.IRouter, path string) {
	router.Any(path, h.Handle)
}

func corsHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// Handle validates the payload, signs links and sends the mail.
func (h *Handler) Handle(c *gin.Context) {
	corsHeaders(c)

	if c.Request.Method == http.MethodOptions {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	if c.Request.Method != http.MethodPost {
		fail(c, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !strings.Contains(strings.ToLower(c.GetHeader("Content-Type")), "application/json") {
		fail(c, http.StatusBadRequest, "Invalid content-type (expected application/json)")
		return
	}

	var req request
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}
		fail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}

	ctx := c.Request.Context()
	logger := reqctx.Logger(ctx, h.opts.Logger).With(
		slog.String("request_id", string(req.RequestID)),
		slog.String("type", string(req.Type)),
	)

	links, status, msg := h.sign(ctx, req.paths())
	if status != 0 {
		logger.Error("sign attachment links", slog.String("error", msg))
		fail(c, status, msg)
		return
	}

	if h.sender == nil {
		fail(c, http.StatusInternalServerError, "Mail not configured (RESEND_API_KEY missing)")
		return
	}

	source := string(req.Source)
	if source == "" {
		source = h.opts.Source
	}
	html, text, err := render(newMailData(req, links, source))
	if err != nil {
		logger.Error("render mail", slog.Any("error", err))
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	err = h.sender.Send(ctx, mail.Message{
		From:    h.opts.From,
		To:      h.opts.Recipients,
		Subject: subject(req.isOffer()),
		HTML:    html,
		Text:    text,
		ReplyTo: string(req.Email),
	})
	metrics.ObserveMail(string(req.Type), err)
	if errors.Is(err, mail.ErrNotConfigured) {
		fail(c, http.StatusInternalServerError, "Mail not configured (RESEND_API_KEY missing)")
		return
	}
	if err != nil {
		logger.Error("send mail", slog.Any("error", err))
		fail(c, http.StatusInternalServerError, "Mail send failed: "+err.Error())
		return
	}

	logger.Info("request mailed", slog.Int("files", len(links)))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// sign returns one link per path. A non-zero status aborts the request.
func (h *Handler) sign(ctx context.Context, paths []string) ([]SignedLink, int, string) {
	if len(paths) == 0 {
		return nil, 0, ""
	}
	for _, p := range paths {
		if !storage.ValidIntakeKey(p) {
			return nil, http.StatusBadRequest, "Invalid file path"
		}
	}
	if h.signer == nil {
		return nil, http.StatusInternalServerError, "Storage not configured (service credentials missing)"
	}

	links := make([]SignedLink, 0, len(paths))
	for _, p := range paths {
		url, err := h.signer.SignedURL(ctx, p, h.opts.LinkTTL)
		if err != nil {
			return nil, http.StatusInternalServerError, "Signed URL failed: " + err.Error()
		}
		if url != "" {
			links = append(links, SignedLink{Path: p, URL: url})
		}
	}
	return links, 0, ""
}
