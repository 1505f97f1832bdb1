package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// IntakePrefix is the folder all public form uploads live under.
const IntakePrefix = "anfragen/"

const (
	maxFilenameLen = 80
	maxKeyLen      = 300
	defaultName    = "datei"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\w.\- ]+`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// SanitizeFilename keeps word characters, dots, dashes and spaces, collapses
// whitespace and caps the length. An empty result becomes "datei".
func SanitizeFilename(name string) string {
	s := unsafeFilenameChars.ReplaceAllString(name, "_")
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
	if len(s) > maxFilenameLen {
		s = s[:maxFilenameLen]
	}
	if s == "" {
		return defaultName
	}
	return s
}

// IntakeObjectKey builds anfragen/<YYYY-MM>/<request id>/<sanitized name>.
func IntakeObjectKey(at time.Time, requestID, filename string) string {
	return fmt.Sprintf("%s%s/%s/%s", IntakePrefix, at.UTC().Format("2006-01"), requestID, SanitizeFilename(filename))
}

// ValidIntakeKey reports whether key may be signed for a mail recipient: it
// must sit under the intake prefix and must not escape it.
func ValidIntakeKey(key string) bool {
	if key == "" || !utf8.ValidString(key) || len(key) > maxKeyLen {
		return false
	}
	if !strings.HasPrefix(key, IntakePrefix) || len(key) == len(IntakePrefix) {
		return false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return false
	}
	return true
}
