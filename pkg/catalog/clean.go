package catalog

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// UnknownSource labels indicators whose data source is missing.
const UnknownSource = "Unknown Source"

const maxSourceLen = 125

var (
	stripMarkup = bluemonday.StrictPolicy()

	// removes <>:"/\|?*
	illegalChars = strings.NewReplacer(
		"<", "", ">", "", ":", "", `"`, "", "/", "",
		`\`, "", "|", "", "?", "", "*", "",
	)
)

// CleanName collapses whitespace, spells out "%" and removes characters that
// are not allowed in file names.
func CleanName(name string) string {
	name = norm.NFC.String(name)
	name = strings.Join(strings.Fields(name), " ")
	name = strings.ReplaceAll(name, "%", "percent")
	return illegalChars.Replace(name)
}

// FileFragment turns an indicator name into a file name fragment: the
// cleaned name with whitespace runs replaced by underscores.
func FileFragment(name string) string {
	return strings.Join(strings.Fields(CleanName(name)), "_")
}

// CleanDataSource reduces a data source description to a short display
// label: markup stripped, first line, first sentence, at most 125 characters.
func CleanDataSource(source string) string {
	if source == "" {
		return UnknownSource
	}
	s := html.UnescapeString(stripMarkup.Sanitize(source))
	s = strings.TrimSpace(s)
	s, _, _ = strings.Cut(s, "\n")
	s, _, _ = strings.Cut(s, ". ")
	s = strings.TrimSpace(norm.NFC.String(s))
	if s == "" {
		return UnknownSource
	}
	if utf8.RuneCountInString(s) > maxSourceLen {
		s = string([]rune(s)[:maxSourceLen]) + "..."
	}
	return s
}
