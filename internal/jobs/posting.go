// Package jobs maps stored job-posting rows to one normalized shape and
// performs CRUD against a remote schema whose column names drifted between
// deployments.
package jobs

import (
	"strings"

	"ltgsite/internal/backend"
	"ltgsite/internal/errcode"
)

// EmploymentType is the kind of contract offered.
type EmploymentType string

const (
	Minijob  EmploymentType = "minijob"
	Teilzeit EmploymentType = "teilzeit"
	Vollzeit EmploymentType = "vollzeit"
	Other    EmploymentType = "other"
)

// ParseEmploymentType maps free input to a known type. Empty input stays
// empty so that validation can reject it; anything unknown is Other.
func ParseEmploymentType(s string) EmploymentType {
	switch v := EmploymentType(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ""
	case Minijob, Teilzeit, Vollzeit:
		return v
	default:
		return Other
	}
}

// Posting is the normalized job posting. Every field has a usable zero value.
type Posting struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	Hours        string `json:"hours"`
	Location     string `json:"location"`
	Tasks        string `json:"tasks"`
	Requirements string `json:"requirements"`
	Benefits     string `json:"benefits"`
	Contact      string `json:"contact"`
	Published    bool   `json:"published"`
	Preview      string `json:"preview"`
	CreatedAt    string `json:"created_at"`
}

// Row renders the posting in its normalized column names. Normalize(p.Row())
// returns p unchanged.
func (p Posting) Row() backend.Row {
	return backend.Row{
		"id":           p.ID,
		"title":        p.Title,
		"type":         p.Type,
		"hours":        p.Hours,
		"location":     p.Location,
		"tasks":        p.Tasks,
		"requirements": p.Requirements,
		"benefits":     p.Benefits,
		"contact":      p.Contact,
		"published":    p.Published,
		"preview":      p.Preview,
		"created_at":   p.CreatedAt,
	}
}

// Fields is the editable content of a posting as submitted by the admin form.
type Fields struct {
	Title        string `json:"title"`
	Type         string `json:"type"`
	Hours        string `json:"hours"`
	Location     string `json:"location"`
	Tasks        string `json:"tasks"`
	Requirements string `json:"requirements"`
	Benefits     string `json:"benefits"`
	Contact      string `json:"contact"`
	Published    bool   `json:"published"`
	Preview      string `json:"preview"`
}

// Validate enforces the persistence invariant: title, type and location set.
func (f Fields) Validate() error {
	switch {
	case strings.TrimSpace(f.Title) == "":
		return errcode.ValidationError("jobs.validate", "Bitte Jobrolle eingeben.")
	case strings.TrimSpace(f.Type) == "":
		return errcode.ValidationError("jobs.validate", "Bitte Art wählen.")
	case strings.TrimSpace(f.Location) == "":
		return errcode.ValidationError("jobs.validate", "Bitte Ort/Region ausfüllen.")
	}
	return nil
}

// Patch returns a patch that writes every field.
func (f Fields) Patch() Patch {
	f2 := f
	return Patch{
		Title:        &f2.Title,
		Type:         &f2.Type,
		Hours:        &f2.Hours,
		Location:     &f2.Location,
		Tasks:        &f2.Tasks,
		Requirements: &f2.Requirements,
		Benefits:     &f2.Benefits,
		Contact:      &f2.Contact,
		Published:    &f2.Published,
		Preview:      &f2.Preview,
	}
}

// FieldsOf extracts the editable part of a stored posting.
func FieldsOf(p Posting) Fields {
	return Fields{
		Title:        p.Title,
		Type:         p.Type,
		Hours:        p.Hours,
		Location:     p.Location,
		Tasks:        p.Tasks,
		Requirements: p.Requirements,
		Benefits:     p.Benefits,
		Contact:      p.Contact,
		Published:    p.Published,
		Preview:      p.Preview,
	}
}

// Patch is a partial update. Nil fields are left untouched in the store.
type Patch struct {
	Title        *string
	Type         *string
	Hours        *string
	Location     *string
	Tasks        *string
	Requirements *string
	Benefits     *string
	Contact      *string
	Published    *bool
	Preview      *string
}

// PublishedOnly builds the patch used by the publish toggle.
func PublishedOnly(published bool) Patch {
	return Patch{Published: &published}
}

// Empty reports whether the patch would write nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Type == nil && p.Hours == nil && p.Location == nil &&
		p.Tasks == nil && p.Requirements == nil && p.Benefits == nil && p.Contact == nil &&
		p.Published == nil && p.Preview == nil
}
