package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"ltgsite/internal/errcode"
	"ltgsite/internal/metrics"
	"ltgsite/internal/storage"
)

// DefaultSource tags submissions coming from the public form page.
const DefaultSource = "anfrage.html"

// Uploader stores one attachment in the private bucket.
type Uploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

// Options tunes a Service. Zero values disable the matching check.
type Options struct {
	Scanner      storage.Scanner
	Limiter      Limiter
	MaxFiles     int
	MaxFileBytes int64
	Source       string
	Logger       *slog.Logger
	Clock        func() time.Time
	NewID        func() string
}

// Service runs one submission end to end.
type Service struct {
	uploader Uploader
	sender   Sender
	opts     Options
}

// Result describes an accepted submission.
type Result struct {
	RequestID string   `json:"request_id"`
	FilePaths []string `json:"file_paths"`
}

func NewService(uploader Uploader, sender Sender, opts Options) *Service {
	if opts.Source == "" {
		opts.Source = DefaultSource
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{uploader: uploader, sender: sender, opts: opts}
}

// Submit validates sub, uploads its attachments and calls the mail function.
//
// Nothing leaves the process until validation passes. Files already uploaded
// stay in the bucket if a later file or the function call fails.
func (s *Service) Submit(ctx context.Context, client string, sub Submission) (res Result, err error) {
	sub = sub.trimmed()
	defer func() { metrics.ObserveIntake(string(sub.Type), outcomeLabel(err)) }()

	if err := sub.Validate(); err != nil {
		return Result{}, err
	}
	if err := sub.checkFiles(s.opts.MaxFiles, s.opts.MaxFileBytes); err != nil {
		return Result{}, err
	}

	logger := s.opts.Logger.With(slog.String("type", string(sub.Type)))

	if s.opts.Limiter != nil {
		allowed, err := s.opts.Limiter.Allow(ctx, client)
		if err != nil {
			logger.Warn("rate limit check failed", slog.Any("error", err))
		} else if !allowed {
			return Result{}, ErrRateLimited
		}
	}

	requestID := s.opts.NewID()
	logger = logger.With(slog.String("request_id", requestID))

	paths, err := s.upload(ctx, requestID, sub.uploads())
	if err != nil {
		logger.Warn("intake upload failed", slog.Any("error", err))
		return Result{}, err
	}

	if s.sender == nil {
		return Result{}, errcode.ConfigurationError("intake.send", "Versand ist nicht konfiguriert.")
	}
	if err := s.sender.Send(ctx, sub.payload(requestID, s.opts.Source, paths)); err != nil {
		logger.Warn("mail function failed", slog.Any("error", err), slog.Int("files", len(paths)))
		return Result{}, err
	}

	logger.Info("intake submitted", slog.Int("files", len(paths)))
	return Result{RequestID: requestID, FilePaths: paths}, nil
}

func (s *Service) upload(ctx context.Context, requestID string, files []Attachment) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.uploader == nil {
		return nil, errcode.ConfigurationError("intake.upload", "Datei-Upload ist nicht konfiguriert.")
	}

	now := s.opts.Clock()
	paths := make([]string, 0, len(files))
	for _, f := range files {
		name := storage.SanitizeFilename(f.Name)
		key := storage.IntakeObjectKey(now, requestID, f.Name)
		if err := s.uploadOne(ctx, key, f); err != nil {
			return paths, errcode.UploadError("intake.upload", name, err)
		}
		paths = append(paths, key)
	}
	return paths, nil
}

func (s *Service) uploadOne(ctx context.Context, key string, f Attachment) error {
	if f.Open == nil {
		return fmt.Errorf("attachment %q has no content", f.Name)
	}

	if s.opts.Scanner != nil {
		r, err := f.Open()
		if err != nil {
			return fmt.Errorf("open for scan: %w", err)
		}
		err = s.opts.Scanner.Scan(r)
		r.Close()
		if err != nil {
			return err
		}
	}

	r, err := f.Open()
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer r.Close()

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = s.uploader.UploadFile(ctx, key, r, f.Size, contentType)
	return err
}

func outcomeLabel(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	if errors.Is(err, ErrRateLimited) {
		return "rate_limited"
	}
	if k := errcode.KindOf(err); k > errcode.OK {
		return k.String()
	}
	return metrics.OutcomeError
}
