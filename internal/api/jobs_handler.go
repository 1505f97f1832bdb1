package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ltgsite/internal/api/middleware"
	"ltgsite/internal/jobs"
	"ltgsite/internal/preview"
)

// PublishedLister lists the postings shown on the public career page.
type PublishedLister interface {
	ListPublished(ctx context.Context) ([]jobs.Posting, error)
}

// JobsHandler serves the public job list.
type JobsHandler struct {
	store  PublishedLister
	logger *slog.Logger
}

func NewJobsHandler(store PublishedLister, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{store: store, logger: logger}
}

// publicJob is a posting with its advertisement text. A stored preview is
// not trusted; the text is rebuilt from the fields.
type publicJob struct {
	jobs.Posting
	Text string `json:"text"`
}

// ListPublished returns all published postings, newest first.
func (h *JobsHandler) ListPublished(c *gin.Context) {
	logger := middleware.LoggerOr(c, h.logger)

	postings, err := h.store.ListPublished(c.Request.Context())
	if err != nil {
		logger.Error("list published jobs", slog.Any("error", err))
		RespondError(c, err)
		return
	}

	items := make([]publicJob, 0, len(postings))
	for _, p := range postings {
		items = append(items, publicJob{Posting: p, Text: preview.ForPosting(p)})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
