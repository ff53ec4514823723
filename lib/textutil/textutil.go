package textutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var interiorSpaces = regexp.MustCompile(`  +`)
var whitespaceRuns = regexp.MustCompile(`\s+`)

// ParseFrenchDate parses a DD/MM/YYYY date into midnight local time.
// Dates drive generated filenames, so anything that is not exactly three
// numeric components is an error rather than a zero date.
func ParseFrenchDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("not a DD/MM/YYYY date: %q", s)
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("not a DD/MM/YYYY date: %q", s)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("not a DD/MM/YYYY date: %q", s)
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("not a DD/MM/YYYY date: %q", s)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local), nil
}

// CollapseSpaces squeezes runs of 2+ spaces down to a single space.
// It deliberately does not trim: leading and trailing whitespace pass
// through untouched.
func CollapseSpaces(s string) string {
	return interiorSpaces.ReplaceAllString(s, " ")
}

// AbsoluteURL joins a site-relative path onto a base origin by plain
// concatenation. The caller must pass a path starting with "/"; inputs that
// are already absolute are not handled.
func AbsoluteURL(base, path string) string {
	return base + path
}

// SafeFilename turns a document label into a filesystem-safe pdf filename:
// whitespace runs become "_", "/" becomes "-". Deterministic, so re-runs
// produce the same name and the saver can dedupe on it.
func SafeFilename(label string) string {
	name := whitespaceRuns.ReplaceAllString(label, "_")
	name = strings.ReplaceAll(name, "/", "-")
	return name + ".pdf"
}
