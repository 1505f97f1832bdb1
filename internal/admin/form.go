package admin

import (
	"strconv"
	"strings"

	"ltgsite/internal/errcode"
	"ltgsite/internal/jobs"
	"ltgsite/internal/preview"
)

// Field names a form input.
type Field string

const (
	FieldRole         Field = "role"
	FieldRoleFree     Field = "role_free"
	FieldTitleExtra   Field = "title_extra"
	FieldType         Field = "type"
	FieldHours        Field = "hours"
	FieldLocation     Field = "location"
	FieldTasks        Field = "tasks"
	FieldRequirements Field = "requirements"
	FieldBenefits     Field = "benefits"
	FieldContact      Field = "contact"
	FieldPublished    Field = "published"
)

// fieldOrder is the order ChangeAll applies edits in. FieldRole must come
// before FieldRoleFree because a selected role clears the free-text role.
var fieldOrder = []Field{
	FieldRole,
	FieldRoleFree,
	FieldTitleExtra,
	FieldType,
	FieldHours,
	FieldLocation,
	FieldTasks,
	FieldRequirements,
	FieldBenefits,
	FieldContact,
	FieldPublished,
}

func knownField(f Field) bool {
	for _, k := range fieldOrder {
		if k == f {
			return true
		}
	}
	return false
}

// Form holds the raw input values exactly as typed.
type Form struct {
	Role         string `json:"role"`
	RoleFree     string `json:"role_free"`
	TitleExtra   string `json:"title_extra"`
	Type         string `json:"type"`
	Hours        string `json:"hours"`
	Location     string `json:"location"`
	Tasks        string `json:"tasks"`
	Requirements string `json:"requirements"`
	Benefits     string `json:"benefits"`
	Contact      string `json:"contact"`
	Published    bool   `json:"published"`
}

// set assigns one field. A selected role disables and clears the free role.
func (f *Form) set(field Field, value string) error {
	switch field {
	case FieldRole:
		f.Role = value
		if strings.TrimSpace(value) != "" {
			f.RoleFree = ""
		}
	case FieldRoleFree:
		if strings.TrimSpace(f.Role) == "" {
			f.RoleFree = value
		}
	case FieldTitleExtra:
		f.TitleExtra = value
	case FieldType:
		f.Type = value
	case FieldHours:
		f.Hours = value
	case FieldLocation:
		f.Location = value
	case FieldTasks:
		f.Tasks = value
	case FieldRequirements:
		f.Requirements = value
	case FieldBenefits:
		f.Benefits = value
	case FieldContact:
		f.Contact = value
	case FieldPublished:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return errcode.ValidationError("admin.change", "Ungültiger Wert für veröffentlicht.")
		}
		f.Published = b
	default:
		return errcode.ValidationError("admin.change", "Unbekanntes Feld: "+string(field))
	}
	return nil
}

// FreeRoleEnabled reports whether the free-text role input is usable.
func (f Form) FreeRoleEnabled() bool {
	return strings.TrimSpace(f.Role) == ""
}

func (f Form) role() string {
	if r := strings.TrimSpace(f.Role); r != "" {
		return r
	}
	return strings.TrimSpace(f.RoleFree)
}

// hasWatchedInput reports whether any field that blocks draft restoration
// holds text.
func (f Form) hasWatchedInput() bool {
	for _, v := range []string{f.Hours, f.Location, f.Tasks, f.Requirements, f.Benefits, f.Contact} {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Fields converts the form to the posting it describes.
func (f Form) Fields() jobs.Fields {
	return jobs.Fields{
		Title:        preview.BuildTitle(f.role(), f.TitleExtra),
		Type:         strings.TrimSpace(f.Type),
		Hours:        strings.TrimSpace(f.Hours),
		Location:     preview.NormalizeLocation(f.Location),
		Tasks:        strings.TrimSpace(f.Tasks),
		Requirements: strings.TrimSpace(f.Requirements),
		Benefits:     strings.TrimSpace(f.Benefits),
		Contact:      strings.TrimSpace(f.Contact),
		Published:    f.Published,
	}
}

// FormFromPosting fills the form for editing a stored posting. The whole
// title goes into the role input.
func FormFromPosting(p jobs.Posting) Form {
	return Form{
		Role:         p.Title,
		Type:         p.Type,
		Hours:        p.Hours,
		Location:     p.Location,
		Tasks:        p.Tasks,
		Requirements: p.Requirements,
		Benefits:     p.Benefits,
		Contact:      p.Contact,
		Published:    p.Published,
	}
}

func (f Form) validate() error {
	if f.role() == "" {
		return errcode.ValidationError("admin.validate", "Bitte Jobrolle wählen oder bei „Sonstiges“ eine Jobrolle eingeben.")
	}
	return f.Fields().Validate()
}
