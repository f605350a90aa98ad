package artifacts

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	toASCII             = transform.Chain(
		norm.NFKD,
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
)

// SanitizeFilename reduces an uploaded file name to a safe base name: compatibility
// decomposition with non-ASCII dropped, path separators turned into spaces, whitespace
// runs joined with "_", anything outside [A-Za-z0-9_.-] removed and leading or trailing
// "." and "_" trimmed. The result may be empty.
func SanitizeFilename(name string) string {
	s, _, err := transform.String(toASCII, name)
	if err != nil {
		return ""
	}
	s = strings.NewReplacer("/", " ", "\\", " ").Replace(s)
	s = strings.Join(strings.Fields(s), "_")
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	return strings.Trim(s, "._")
}
