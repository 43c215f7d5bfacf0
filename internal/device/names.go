package device

import (
	"strings"

	"golang.org/x/text/width"
)

// ideographicSpace is the full-width space used by Japanese input methods.
const ideographicSpace = "　"

// Normalize folds a device name for matching: full-width characters are
// narrowed, every space (full-width or half-width) is removed and letters are
// upper-cased. "SENDAI　" and "sendai" both normalize to "SENDAI".
func Normalize(name string) string {
	s := width.Fold.String(name)
	s = strings.ReplaceAll(s, ideographicSpace, "")
	s = strings.ReplaceAll(s, " ", "")
	return strings.ToUpper(s)
}

// containsName reports whether the normalized name got contains want.
func containsName(got, want string) bool {
	return strings.Contains(got, want)
}
