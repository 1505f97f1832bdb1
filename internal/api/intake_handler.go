package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ltgsite/internal/api/middleware"
	"ltgsite/internal/errcode"
	"ltgsite/internal/intake"
)

// SuccessMessage is shown after a submission went through.
const SuccessMessage = "✅ Anfrage wurde gesendet. Danke! Wir melden uns zeitnah zurück."

const multipartMemory = 8 << 20

// Submitter runs one intake submission.
type Submitter interface {
	Submit(ctx context.Context, client string, sub intake.Submission) (intake.Result, error)
}

// IntakeHandler accepts the public contact and quote form.
type IntakeHandler struct {
	service Submitter
	logger  *slog.Logger
	maxBody int64
}

// NewIntakeHandler limits request bodies to maxBody bytes when positive.
func NewIntakeHandler(service Submitter, logger *slog.Logger, maxBody int64) *IntakeHandler {
	return &IntakeHandler{service: service, logger: logger, maxBody: maxBody}
}

type intakeJSON struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Message     string `json:"message"`
	ServiceType string `json:"service_type"`
	Location    string `json:"location"`
	Consent     bool   `json:"consent"`
}

// Submit reads a multipart form (or JSON without files) and runs it.
func (h *IntakeHandler) Submit(c *gin.Context) {
	logger := middleware.LoggerOr(c, h.logger)
	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}

	sub, err := h.readSubmission(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(c, http.StatusRequestEntityTooLarge, "Dateien sind zu groß.")
			return
		}
		BadRequest(c, "Ungültige Anfrage.")
		return
	}

	res, err := h.service.Submit(c.Request.Context(), c.ClientIP(), sub)
	if err != nil {
		if errors.Is(err, intake.ErrRateLimited) {
			Error(c, http.StatusTooManyRequests, "Zu viele Anfragen. Bitte später erneut versuchen.")
			return
		}
		if !errcode.Is(err, errcode.Validation) {
			logger.Error("intake submission failed", slog.Any("error", err))
		}
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"request_id": res.RequestID,
		"file_paths": res.FilePaths,
		"message":    SuccessMessage,
	})
}

func (h *IntakeHandler) readSubmission(c *gin.Context) (intake.Submission, error) {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var in intakeJSON
		if err := c.ShouldBindJSON(&in); err != nil {
			return intake.Submission{}, err
		}
		return intake.Submission{
			Type:        intake.RequestType(in.Type),
			Name:        in.Name,
			Email:       in.Email,
			Phone:       in.Phone,
			Message:     in.Message,
			ServiceType: in.ServiceType,
			Location:    in.Location,
			Consent:     in.Consent,
		}, nil
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
			return intake.Submission{}, err
		}
	}

	sub := intake.Submission{
		Type:        intake.RequestType(c.PostForm("type")),
		Name:        c.PostForm("name"),
		Email:       c.PostForm("email"),
		Phone:       c.PostForm("phone"),
		Message:     c.PostForm("message"),
		ServiceType: c.PostForm("service_type"),
		Location:    c.PostForm("location"),
		Consent:     checked(c.PostForm("consent")),
	}
	if form := c.Request.MultipartForm; form != nil {
		for _, fh := range form.File["files"] {
			sub.Files = append(sub.Files, attachmentOf(fh))
		}
	}
	return sub, nil
}

// checked interprets an HTML checkbox value.
func checked(v string) bool {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "on") {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func attachmentOf(fh *multipart.FileHeader) intake.Attachment {
	return intake.Attachment{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
