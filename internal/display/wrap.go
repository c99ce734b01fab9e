// Package display formats console text.
package display

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

// Width is the column console output wraps at.
const Width = 80

// Wrap word-wraps text to Width, preserving ANSI escape sequences.
func Wrap(text string) string {
	return wordwrap.String(text, Width)
}

// Block wraps text so that, indented by n spaces, it still fits in Width.
func Block(text string, n uint) string {
	return indent.String(wordwrap.String(text, Width-int(n)), n)
}

// Capitalize returns s with its first letter uppercased.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	var sb strings.Builder
	sb.WriteRune(unicode.ToUpper(r))
	sb.WriteString(s[size:])
	return sb.String()
}
