// Package normalize cleans model output before it reaches a client: markdown
// bullets and emphasis, list numbering and redundant whitespace are removed.
package normalize

import (
	"regexp"
	"strings"
)

// Rule is one named step of the cleaning pipeline.
type Rule struct {
	Name  string
	Apply func(string) string
}

const asciiSpace = " \t\n\r\f\v"

var (
	reMarkup    = regexp.MustCompile(`[*•\-_]+`)
	reNumbering = regexp.MustCompile(`(?m)^[ \t\r\f\v]*(?:\d+\.[ \t\r\f\v]*)+\d?`)
	reSpaces    = regexp.MustCompile(` {2,}`)
	reNewlines  = regexp.MustCompile(`[ \t\r\f\v]*\n[ \t\r\f\v\n]*`)
)

// stripNumbering drops list markers at line starts. A marker directly
// followed by a digit is the integer part of a decimal ("2.5 kg") and stays.
func stripNumbering(s string) string {
	return reNumbering.ReplaceAllStringFunc(s, func(m string) string {
		last := len(m) - 1
		if !isDigit(m[last]) {
			return ""
		}
		if m[last-1] != '.' {
			return m[last:]
		}
		i := last - 1
		for i > 0 && isDigit(m[i-1]) {
			i--
		}
		return m[i:]
	})
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func replaceWith(re *regexp.Regexp, repl string) func(string) string {
	return func(s string) string { return re.ReplaceAllLiteralString(s, repl) }
}

// Rules run in order; later rules clean up gaps left by earlier ones.
var Rules = []Rule{
	{Name: "strip-markup", Apply: replaceWith(reMarkup, "")},
	{Name: "strip-numbering", Apply: stripNumbering},
	{Name: "collapse-spaces", Apply: replaceWith(reSpaces, " ")},
	{Name: "collapse-newlines", Apply: replaceWith(reNewlines, "\n")},
	{Name: "trim", Apply: func(s string) string { return strings.Trim(s, asciiSpace) }},
}

// Text applies every rule to s. Text(Text(s)) == Text(s).
func Text(s string) string {
	if s == "" {
		return ""
	}
	for _, r := range Rules {
		s = r.Apply(s)
	}
	return s
}
