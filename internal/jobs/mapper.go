package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ltgsite/internal/backend"
)

// Stored rows name the same field differently depending on which deployment
// wrote them. The first key holding a non-nil value wins.
var (
	idKeys           = []string{"id", "job_id", "slug"}
	titleKeys        = []string{"title", "job_title", "jobrole"}
	typeKeys         = []string{"type", "art", "employment_type"}
	hoursKeys        = []string{"hours_per_week", "hours", "stunden_pro_woche"}
	locationKeys     = []string{"location", "region", "ort_region"}
	tasksKeys        = []string{"tasks", "aufgaben"}
	requirementsKeys = []string{"requirements", "anforderungen"}
	benefitsKeys     = []string{"we_offer", "offer", "wir_bieten", "benefits"}
	contactKeys      = []string{"contact", "contact_email", "kontakt"}
	publishedKeys    = []string{"is_published", "published", "veroeffentlicht"}
	previewKeys      = []string{"preview"}
	createdAtKeys    = []string{"created_at"}
)

// Normalize maps a stored row of either schema shape to a Posting. Missing or
// nil values fall back to "" for text and false for the published flag. The
// input row is never modified.
func Normalize(row backend.Row) Posting {
	return Posting{
		ID:           text(first(row, idKeys)),
		Title:        text(first(row, titleKeys)),
		Type:         text(first(row, typeKeys)),
		Hours:        text(first(row, hoursKeys)),
		Location:     text(first(row, locationKeys)),
		Tasks:        text(first(row, tasksKeys)),
		Requirements: text(first(row, requirementsKeys)),
		Benefits:     text(first(row, benefitsKeys)),
		Contact:      text(first(row, contactKeys)),
		Published:    truthy(first(row, publishedKeys)),
		Preview:      text(first(row, previewKeys)),
		CreatedAt:    text(first(row, createdAtKeys)),
	}
}

// NormalizeAll maps every row.
func NormalizeAll(rows []backend.Row) []Posting {
	out := make([]Posting, 0, len(rows))
	for _, r := range rows {
		out = append(out, Normalize(r))
	}
	return out
}

// FieldError describes one malformed value found by Decode.
type FieldError struct {
	Field string
	Key   string
	Value any
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: column %q has unexpected type %T", e.Field, e.Key, e.Value)
}

// Decode is the strict variant of Normalize. It produces the same Posting but
// also reports every field whose stored value has an unusable type, joined
// into one error.
func Decode(row backend.Row) (Posting, error) {
	var errs []error
	check := func(field string, keys []string, ok func(any) bool) {
		key, v, found := firstKey(row, keys)
		if found && !ok(v) {
			errs = append(errs, &FieldError{Field: field, Key: key, Value: v})
		}
	}

	check("id", idKeys, isScalarText)
	check("title", titleKeys, isScalarText)
	check("type", typeKeys, isScalarText)
	check("hours", hoursKeys, isScalarText)
	check("location", locationKeys, isScalarText)
	check("tasks", tasksKeys, isScalarText)
	check("requirements", requirementsKeys, isScalarText)
	check("benefits", benefitsKeys, isScalarText)
	check("contact", contactKeys, isScalarText)
	check("published", publishedKeys, func(v any) bool { _, ok := v.(bool); return ok })
	check("preview", previewKeys, isScalarText)
	check("created_at", createdAtKeys, isScalarText)

	return Normalize(row), errors.Join(errs...)
}

func first(row backend.Row, keys []string) any {
	_, v, _ := firstKey(row, keys)
	return v
}

func firstKey(row backend.Row, keys []string) (string, any, bool) {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return k, v, true
		}
	}
	return "", nil, false
}

func isScalarText(v any) bool {
	switch v.(type) {
	case string, float64, float32, int, int32, int64, json.Number:
		return true
	}
	return false
}

func text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return err == nil && b
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	default:
		return false
	}
}
