package catalog

import "strings"

// Characters that are unsafe in file names and object keys.
var sanitizer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// Sanitize replaces characters that are problematic in file paths and
// object keys with underscores. It is pure and idempotent.
func Sanitize(s string) string {
	return sanitizer.Replace(s)
}

// MakeID builds the canonical catalog identity for a track from its raw
// artist and title. Inputs that differ only in sanitized characters map to
// the same id; existing catalogs depend on that collapsing, so it stays.
func MakeID(artist, title string) string {
	return Sanitize(artist) + " - " + Sanitize(title)
}
