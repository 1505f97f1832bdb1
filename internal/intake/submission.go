// Package intake implements the public contact and quote form: validation,
// attachment upload and hand-off to the mail function.
package intake

import (
	"context"
	"fmt"
	"io"
	"strings"

	"ltgsite/internal/errcode"
)

// RequestType distinguishes a plain contact message from a quote request.
type RequestType string

const (
	Kontakt RequestType = "kontakt"
	Angebot RequestType = "angebot"
)

// Valid reports whether t is one of the two known request types.
func (t RequestType) Valid() bool {
	return t == Kontakt || t == Angebot
}

// Attachment is one uploaded file. Open may be called more than once.
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Submission is what the visitor filled in.
type Submission struct {
	Type        RequestType
	Name        string
	Email       string
	Phone       string
	Message     string
	ServiceType string
	Location    string
	Consent     bool
	Files       []Attachment
}

// Payload is the JSON body sent to the mail function.
type Payload struct {
	RequestID   string      `json:"request_id"`
	Type        RequestType `json:"type"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Phone       *string     `json:"phone"`
	Message     string      `json:"message"`
	Consent     bool        `json:"consent"`
	Source      string      `json:"source"`
	ServiceType *string     `json:"service_type"`
	Location    *string     `json:"location"`
	FilePaths   []string    `json:"file_paths"`
}

// Sender delivers a payload to the mail function.
type Sender interface {
	Send(ctx context.Context, p Payload) error
}

func (s Submission) trimmed() Submission {
	s.Type = RequestType(strings.TrimSpace(string(s.Type)))
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Message = strings.TrimSpace(s.Message)
	s.ServiceType = strings.TrimSpace(s.ServiceType)
	s.Location = strings.TrimSpace(s.Location)
	return s
}

// Validate checks the rules in the order the form reports them. Only the
// first failure is returned.
func (s Submission) Validate() error {
	s = s.trimmed()
	if s.Type == "" {
		return errcode.ValidationError("intake.validate", "Bitte wähle aus, worum es geht.")
	}
	if !s.Type.Valid() {
		return errcode.ValidationError("intake.validate", "Unbekannte Anfrageart.")
	}
	if s.Name == "" || s.Email == "" || s.Message == "" {
		return errcode.ValidationError("intake.validate", "Bitte Name, E-Mail und Nachricht ausfüllen.")
	}
	if !s.Consent {
		return errcode.ValidationError("intake.validate", "Bitte Datenschutz-Einwilligung bestätigen.")
	}
	return nil
}

// uploads returns the attachments that will be stored. Only quote requests
// carry files.
func (s Submission) uploads() []Attachment {
	if s.Type != Angebot {
		return nil
	}
	return s.Files
}

func (s Submission) checkFiles(maxFiles int, maxBytes int64) error {
	files := s.uploads()
	if maxFiles > 0 && len(files) > maxFiles {
		return errcode.ValidationError("intake.validate", fmt.Sprintf("Bitte höchstens %d Dateien anhängen.", maxFiles))
	}
	if maxBytes <= 0 {
		return nil
	}
	for _, f := range files {
		if f.Size > maxBytes {
			return errcode.ValidationError("intake.validate",
				fmt.Sprintf("Datei zu groß (%s, max. %d MB).", f.Name, maxBytes/(1024*1024)))
		}
	}
	return nil
}

func (s Submission) payload(requestID, source string, paths []string) Payload {
	p := Payload{
		RequestID: requestID,
		Type:      s.Type,
		Name:      s.Name,
		Email:     s.Email,
		Phone:     optional(s.Phone),
		Message:   s.Message,
		Consent:   true,
		Source:    source,
		FilePaths: paths,
	}
	if p.FilePaths == nil {
		p.FilePaths = []string{}
	}
	if s.Type == Angebot {
		p.ServiceType = optional(s.ServiceType)
		p.Location = optional(s.Location)
	}
	return p
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
