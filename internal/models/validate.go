package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits.
const (
	MaxTaskTextLen    = 500
	MaxStatusLabelLen = 50
)

var colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Validate checks a task creation request.
func (r TaskCreate) Validate() *AppError {
	if strings.TrimSpace(r.Text) == "" {
		return ErrInvalidField("text", "Task text is required")
	}
	if utf8.RuneCountInString(r.Text) > MaxTaskTextLen {
		return ErrInvalidField("text", "Task text must be between 1 and 500 characters")
	}
	if strings.TrimSpace(r.StatusID) == "" {
		return ErrInvalidField("statusId", "Status ID is required")
	}
	return nil
}

// Validate checks a status creation or update request.
func (r StatusInput) Validate() *AppError {
	if strings.TrimSpace(r.Label) == "" {
		return ErrInvalidField("label", "Status label is required")
	}
	if utf8.RuneCountInString(r.Label) > MaxStatusLabelLen {
		return ErrInvalidField("label", "Status label must be between 1 and 50 characters")
	}
	if strings.TrimSpace(r.Color) == "" {
		return ErrInvalidField("color", "Status color is required")
	}
	if !colorRe.MatchString(r.Color) {
		return ErrInvalidField("color", "Color must be a valid hex color code (e.g., #4a90e2)")
	}
	return nil
}

// Validate reports whether a task read from disk is complete. Decoding
// leaves missing or null fields at their zero value, so those are caught here.
func (t Task) Validate() error {
	if t.ID == "" {
		return errors.New("task: id is required")
	}
	if t.Created.IsZero() {
		return fmt.Errorf("task %s: created is required", t.ID)
	}
	return nil
}

// Validate reports whether a status read from disk is complete.
func (s Status) Validate() error {
	if s.ID == "" {
		return errors.New("status: id is required")
	}
	if s.Label == "" {
		return fmt.Errorf("status %s: label is required", s.ID)
	}
	if !colorRe.MatchString(s.Color) {
		return fmt.Errorf("status %s: color %q is not #RRGGBB", s.ID, s.Color)
	}
	return nil
}

// SanitizeHTML escapes the characters that could open markup in a browser.
func SanitizeHTML(s string) string {
	return htmlReplacer.Replace(s)
}

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// SameLabel reports whether two status labels collide. Labels are compared
// case-insensitively.
func SameLabel(a, b string) bool {
	return strings.EqualFold(a, b)
}
