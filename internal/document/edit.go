package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Parse builds a Document, choosing the front-end from the path extension.
func Parse(path, text string) (*Document, error) {
	switch FormatForPath(path) {
	case FormatMarkdown:
		return ParseMarkdown(path, text)
	default:
		return ParseOrg(path, text), nil
	}
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document path %q: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", abs, err)
	}
	return Parse(abs, string(data))
}

// FormatForPath maps a file name to the front-end that reads it.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatOrg
	}
}

// Extensions lists the file extensions read as documents.
var Extensions = []string{".org", ".md", ".markdown"}

// IsDocument reports whether path looks like a literate source file.
func IsDocument(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ReplaceBodies returns the document text with the bodies of the given
// fragments replaced by new content. Content is unescaped text; markup
// escaping is reapplied before insertion.
func (d *Document) ReplaceBodies(bodies map[*Fragment]string) string {
	frags := make([]*Fragment, 0, len(bodies))
	for f := range bodies {
		frags = append(frags, f)
	}
	sort.Slice(frags, func(i, j int) bool {
		return frags[i].BodyStart > frags[j].BodyStart
	})

	text := d.Text
	for _, f := range frags {
		content := bodies[f]
		if d.Format == FormatOrg {
			content = Escape(content)
		} else {
			content = f.reindent(content)
		}
		start, end := f.BodyStart, f.BodyEnd
		switch {
		case start == end && content != "":
			content += "\n"
		case start != end && content == "" && end < len(text) && text[end] == '\n':
			end++
		}
		text = text[:start] + content + text[end:]
	}
	return text
}
