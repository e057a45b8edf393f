package document

import (
	"strings"

	"github.com/morozRed/tangle/internal/options"
)

// Format identifies the markup a document was read from.
type Format int

const (
	FormatOrg Format = iota
	FormatMarkdown
)

func (f Format) String() string {
	switch f {
	case FormatOrg:
		return "org"
	case FormatMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// HeaderArgs is one inherited option layer, optionally restricted to a
// single fragment language.
type HeaderArgs struct {
	Language string
	Args     options.Set
}

// Heading is a document section. The root heading (Level 0, empty Label)
// holds fragments that appear before the first real heading.
type Heading struct {
	Label      string
	Level      int
	Parent     *Heading
	Commented  bool
	Properties []HeaderArgs
	Fragments  []*Fragment
	Start      int
	End        int
}

// Path returns the labels from the outermost ancestor down to h, excluding
// the root.
func (h *Heading) Path() []string {
	var path []string
	for cur := h; cur != nil && cur.Level > 0; cur = cur.Parent {
		path = append([]string{cur.Label}, path...)
	}
	return path
}

// Excluded reports whether h or any ancestor carries the COMMENT keyword.
func (h *Heading) Excluded() bool {
	for cur := h; cur != nil; cur = cur.Parent {
		if cur.Commented {
			return true
		}
	}
	return false
}

// Chain returns the headings from the root down to h.
func (h *Heading) Chain() []*Heading {
	var chain []*Heading
	for cur := h; cur != nil; cur = cur.Parent {
		chain = append([]*Heading{cur}, chain...)
	}
	return chain
}

// Fragment is a source block embedded in the document.
type Fragment struct {
	Language string
	Name     string
	// Body is the raw text between the begin and end lines, without the
	// final newline, exactly as it appears in the document.
	Body      string
	Header    options.Set
	Commented bool
	Heading   *Heading
	Seq       int
	// Preamble is the prose between the previous element and the block.
	Preamble  string
	Start     int
	End       int
	BodyStart int
	BodyEnd   int
	format    Format

	// Markdown fences nested in a container: the body without container
	// indentation, the indentation dropped per raw line, and the prefix of
	// the opening fence line.
	content string
	indent  []lineIndent
	prefix  string
}

type lineIndent struct {
	trim int
	pad  int
}

// Excluded reports whether the fragment is commented out by itself, by a
// surrounding comment block, or by a commented heading.
func (f *Fragment) Excluded() bool {
	return f.Commented || (f.Heading != nil && f.Heading.Excluded())
}

// Content returns the body with one level of markup escaping removed.
func (f *Fragment) Content() string {
	if f.format == FormatOrg {
		return Unescape(f.Body)
	}
	if f.indent != nil {
		return f.content
	}
	return f.Body
}

// RawColumn maps a column of line i of Content to the matching byte column
// of the raw body line in the document.
func (f *Fragment) RawColumn(i, col int) int {
	switch {
	case f.format == FormatOrg:
		lines := strings.Split(f.Body, "\n")
		if i < len(lines) {
			if esc := EscapeColumn(lines[i]); esc >= 0 && col >= esc {
				col++
			}
		}
	case i < len(f.indent):
		col = f.indent[i].trim + max(col-f.indent[i].pad, 0)
	}
	return col
}

// reindent restores the container prefix of a nested Markdown fence on every
// non-empty line.
func (f *Fragment) reindent(content string) string {
	if f.prefix == "" || content == "" {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = f.prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// HeadingLabel returns the label of the enclosing heading, or "" for
// fragments before the first heading.
func (f *Fragment) HeadingLabel() string {
	if f.Heading == nil {
		return ""
	}
	return f.Heading.Label
}

// Document is an immutable snapshot of a literate source file.
type Document struct {
	// Path is the file name the document is associated with. It may differ
	// from where the text was read when the document is a working copy.
	Path     string
	Text     string
	Format   Format
	Defaults []HeaderArgs
	// Headings lists every heading in document order; Headings[0] is the
	// root.
	Headings []*Heading
}

// Root returns the pseudo-heading holding fragments before any heading.
func (d *Document) Root() *Heading {
	return d.Headings[0]
}

// Fragments returns every fragment in document order, excluded ones
// included.
func (d *Document) Fragments() []*Fragment {
	var out []*Fragment
	for _, h := range d.Headings {
		out = append(out, h.Fragments...)
	}
	return out
}

// LineColumn converts a byte offset into 1-based line and column numbers.
func (d *Document) LineColumn(offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.Text) {
		offset = len(d.Text)
	}
	before := d.Text[:offset]
	line := strings.Count(before, "\n") + 1
	col := offset - (strings.LastIndex(before, "\n") + 1) + 1
	return line, col
}

func newRoot(textLen int) *Heading {
	return &Heading{Level: 0, Start: 0, End: textLen}
}

func attachFragment(h *Heading, f *Fragment, seq *int) {
	f.Heading = h
	f.Seq = *seq
	*seq++
	h.Fragments = append(h.Fragments, f)
}

func closeHeadings(headings []*Heading, level, offset int) {
	for i := len(headings) - 1; i >= 1; i-- {
		h := headings[i]
		if h.End == 0 && h.Level >= level {
			h.End = offset
		}
	}
}

func parentFor(headings []*Heading, level int) *Heading {
	for i := len(headings) - 1; i >= 0; i-- {
		if headings[i].Level < level {
			return headings[i]
		}
	}
	return headings[0]
}
