// Package mailfn is the send-anfrage function: it validates an intake
// payload, signs download links for attached files and mails the request to
// the office.
package mailfn

import (
	"bytes"
	"encoding/json"
	"strings"
)

// text accepts any JSON scalar and keeps its trimmed string form. Objects
// and arrays decode to the empty string.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(strings.TrimSpace(s))
	case b[0] == '{' || b[0] == '[':
		*t = ""
	default:
		*t = text(strings.TrimSpace(string(b)))
	}
	return nil
}

type request struct {
	RequestID   text            `json:"request_id"`
	Type        text            `json:"type"`
	Name        text            `json:"name"`
	Email       text            `json:"email"`
	Phone       text            `json:"phone"`
	Message     text            `json:"message"`
	ServiceType text            `json:"service_type"`
	Location    text            `json:"location"`
	FilePaths   json.RawMessage `json:"file_paths"`
	Source      text            `json:"source"`
	Consent     json.RawMessage `json:"consent"`
}

// consented is true only for a literal JSON true.
func (r request) consented() bool {
	return bytes.Equal(bytes.TrimSpace(r.Consent), []byte("true"))
}

// paths returns the non-empty file paths, or none when file_paths is not an
// array.
func (r request) paths() []string {
	var raw []text
	if len(r.FilePaths) == 0 || json.Unmarshal(r.FilePaths, &raw) != nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			out = append(out, string(p))
		}
	}
	return out
}

// validate returns the client-facing error text, or "".
func (r request) validate() string {
	if r.Type != "kontakt" && r.Type != "angebot" {
		return "Invalid type"
	}
	if r.Name == "" || r.Email == "" || r.Message == "" {
		return "Missing required fields"
	}
	if !emailLikely(string(r.Email)) {
		return "Invalid email"
	}
	if !r.consented() {
		return "Consent missing"
	}
	return ""
}

// emailLikely is a plausibility check, not RFC validation.
func emailLikely(v string) bool {
	return strings.Contains(v, "@") && strings.Contains(v, ".") && len(v) >= 6
}

func (r request) isOffer() bool { return r.Type == "angebot" }
