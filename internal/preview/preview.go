// Package preview renders the plain-text job advertisement shown on the site
// and stored alongside each posting.
package preview

import (
	"regexp"
	"strings"

	"ltgsite/internal/jobs"
)

// DefaultTitle is used when neither a role nor a suffix was given.
const DefaultTitle = "Reinigungskraft (m/w/d)"

const (
	fallbackHeadline = "Stellenangebot"
	fallbackContact  = "Melde dich gern über unsere Kontaktseite."
	desirableSuffix  = " (von Vorteil)"
	metaSeparator    = " · "
	titleSeparator   = " – "
)

var intro = []string{
	"Wir sind ein familiäres Reinigungsunternehmen mit Anspruch an Qualität, Zuverlässigkeit und ein respektvolles Miteinander.",
	"Zur Verstärkung unseres Teams suchen wir Menschen, die ihre Arbeit sorgfältig erledigen und sich aufeinander verlassen können.",
}

const closing = "Wenn du dir vorstellen kannst, Teil unseres Teams zu werden, freuen wir uns auf deine Nachricht."

// Section identifies one of the three bullet lists.
type Section int

const (
	Tasks Section = iota
	Requirements
	Benefits
)

func (s Section) heading() string {
	switch s {
	case Tasks:
		return "Deine Aufgaben:"
	case Requirements:
		return "Das wünschen wir uns:"
	default:
		return "Das bieten wir dir:"
	}
}

// Defaults returns a copy of the curated bullets for s.
func Defaults(s Section) []string {
	var d []string
	switch s {
	case Tasks:
		d = []string{
			"Reinigung von Treppenhäusern, Büros oder Objekten nach Plan",
			"Sorgfältiger Umgang mit Material und Ausstattung",
			"Dokumentation nach Bedarf",
		}
	case Requirements:
		d = []string{
			"Zuverlässigkeit und Pünktlichkeit",
			"Sorgfältige Arbeitsweise",
			"Freundliches Auftreten",
		}
	default:
		d = []string{
			"Feste Absprachen und Einarbeitung",
			"Arbeitszeiten nach Absprache",
			"Langfristige Zusammenarbeit",
		}
	}
	return d
}

var (
	leadingDash = regexp.MustCompile(`^-\s*`)
	allesToken  = regexp.MustCompile(`(?i)\balles\b`)
)

// SplitLines splits a bullet source into trimmed, non-empty lines with any
// leading "- " marker removed.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(leadingDash.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Bullets turns free text into the bullet list for section s.
//
// Placeholder lines are dropped. A line mentioning "alles" keeps only the
// text before that word and pulls in every default bullet. If nothing
// usable remains the defaults are returned unchanged.
func Bullets(text string, s Section) []string {
	var (
		out        []string
		addDefault bool
	)
	for _, line := range SplitLines(text) {
		if loc := allesToken.FindStringIndex(line); loc != nil {
			addDefault = true
			rest := strings.TrimRight(strings.TrimSpace(line[:loc[0]]), " ,;:-–")
			if rest != "" && !IsPlaceholder(rest) {
				if s == Requirements {
					rest += desirableSuffix
				}
				out = append(out, rest)
			}
			continue
		}
		if IsPlaceholder(line) {
			continue
		}
		out = append(out, line)
	}
	if addDefault {
		out = append(out, Defaults(s)...)
	}

	out = dedupe(out)
	if len(out) == 0 {
		return Defaults(s)
	}
	return out
}

func dedupe(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		key := Fold(l)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

// TypeLabel returns the display label for an employment type, or "".
func TypeLabel(t string) string {
	switch jobs.EmploymentType(t) {
	case jobs.Minijob:
		return "Minijob"
	case jobs.Teilzeit:
		return "Teilzeit"
	case jobs.Vollzeit:
		return "Vollzeit"
	}
	return ""
}

// Meta joins the present parts with " · ".
func Meta(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, metaSeparator)
}

// HoursLabel renders weekly hours, or "" when unset.
func HoursLabel(hours string) string {
	if h := strings.TrimSpace(hours); h != "" {
		return h + " Std./Woche"
	}
	return ""
}

// BuildTitle joins a role and an optional suffix.
func BuildTitle(role, extra string) string {
	r := strings.TrimSpace(role)
	e := strings.TrimSpace(extra)
	switch {
	case r == "" && e == "":
		return DefaultTitle
	case r == "":
		return e
	case e == "":
		return r
	}
	return r + titleSeparator + e
}

// Build renders the advertisement text. Identical input yields identical output.
func Build(f jobs.Fields) string {
	contact := strings.TrimSpace(f.Contact)
	if contact == "" {
		contact = fallbackContact
	}
	title := strings.TrimSpace(f.Title)
	if title == "" {
		title = fallbackHeadline
	}

	lines := []string{title}
	if meta := Meta(TypeLabel(strings.TrimSpace(f.Type)), HoursLabel(f.Hours), f.Location); meta != "" {
		lines = append(lines, meta)
	}
	lines = append(lines, "")
	lines = append(lines, intro...)
	lines = append(lines, "")

	sections := []struct {
		s    Section
		text string
	}{
		{Tasks, f.Tasks},
		{Requirements, f.Requirements},
		{Benefits, f.Benefits},
	}
	for _, sec := range sections {
		lines = append(lines, sec.s.heading())
		for _, b := range Bullets(sec.text, sec.s) {
			lines = append(lines, "• "+b)
		}
		lines = append(lines, "")
	}

	lines = append(lines, closing, "Kontakt: "+contact)
	return strings.Join(lines, "\n")
}

// ForPosting renders the advertisement of a stored posting.
func ForPosting(p jobs.Posting) string {
	return Build(jobs.FieldsOf(p))
}
