package utils

import (
	"regexp"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ShortID generates a 20-char ID (first char alphabetic, rest alphanumeric)
func ShortID() string {
	firstChar, _ := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz", 1)
	rest, _ := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", 19)
	return firstChar + rest
}

var (
	invalidNameChars = regexp.MustCompile(`[^a-z0-9]`)
	dashRuns         = regexp.MustCompile(`-+`)
)

// ProjectID derives the stable project identifier from a service name:
// lowercase, dashes for anything non-alphanumeric, no leading or trailing
// dashes. The identifier keys every control-plane resource name and the
// gateway path, so it must come out the same on every run.
func ProjectID(name string) string {
	id := strings.ToLower(name)
	id = invalidNameChars.ReplaceAllString(id, "-")
	id = dashRuns.ReplaceAllString(id, "-")
	return strings.Trim(id, "-")
}

// PtrValue returns the value of a pointer or a default value if nil
func PtrValue[T any](ptr *T, defaultValue T) T {
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

// Ptr returns a pointer to the given value
func Ptr[T any](v T) *T {
	return &v
}
