package nav

import (
	"strconv"
	"strings"
)

// ParseLocationQuery splits "file:line" or "file:line:col". Line and column
// are 1-based; a missing column is 1.
func ParseLocationQuery(query string) (file string, line, col int, ok bool) {
	file, last, ok := splitNumber(query)
	if !ok {
		return "", 0, 0, false
	}
	if rest, n, ok := splitNumber(file); ok {
		return rest, n, last, true
	}
	return file, last, 1, true
}

func splitNumber(query string) (string, int, bool) {
	idx := strings.LastIndex(query, ":")
	if idx <= 0 || idx >= len(query)-1 {
		return "", 0, false
	}
	head := strings.TrimSpace(query[:idx])
	n, err := strconv.Atoi(strings.TrimSpace(query[idx+1:]))
	if head == "" || err != nil || n <= 0 {
		return "", 0, false
	}
	return head, n, true
}

// OffsetForLine converts a 1-based line and column into a byte offset of
// text, clamping to the line's end.
func OffsetForLine(text string, line, col int) int {
	offset := 0
	for i := 1; i < line; i++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return len(text)
		}
		offset += next + 1
	}
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		end = len(text) - offset
	}
	return offset + min(max(col-1, 0), end)
}
