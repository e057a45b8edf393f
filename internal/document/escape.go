package document

import (
	"regexp"
	"strings"
)

var (
	escapedLine   = regexp.MustCompile(`^([ \t]*)(,*),(\*|#\+)`)
	escapableLine = regexp.MustCompile(`^([ \t]*)(,*)(\*|#\+)`)
)

// Unescape strips one level of comma escaping from lines that would
// otherwise read as Org headings or keywords (",* x" -> "* x",
// ",,#+begin_src" -> ",#+begin_src").
func Unescape(body string) string {
	if !strings.Contains(body, ",") {
		return body
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = escapedLine.ReplaceAllString(line, "$1$2$3")
	}
	return strings.Join(lines, "\n")
}

// Escape is the inverse of Unescape.
func Escape(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = escapableLine.ReplaceAllString(line, "$1$2,$3")
	}
	return strings.Join(lines, "\n")
}

// EscapeColumn returns the byte index of the escaping comma on a raw body
// line, or -1 when the line is not escaped.
func EscapeColumn(line string) int {
	m := escapedLine.FindStringSubmatchIndex(line)
	if m == nil {
		return -1
	}
	return m[5]
}
