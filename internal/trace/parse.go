package trace

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/morozRed/tangle/internal/languages"
)

var (
	linkBeginPattern   = regexp.MustCompile(`^([ \t]*)(\S*)[ \t]*\[\[file:([^\]]+)\]\[(.+):(\d+)\]\][ \t]*(\S*)[ \t]*$`)
	anchorBeginPattern = regexp.MustCompile(`^([ \t]*)(\S*)[ \t]*\[\[file:([^\]]+?)::([^\]]+)\]\][ \t]*(\S*)[ \t]*$`)
)

// Item is one line of segment content, or a nested anchor in its place.
type Item struct {
	Line   int
	Text   string
	Anchor *Anchor
}

// Anchor is a nested noweb expansion inside a segment.
type Anchor struct {
	Name   string
	DocRef string
	// Prefix is the indentation of the anchor lines in the generated file.
	Prefix string
	Begin  int
	End    int
	Items  []Item
}

// Segment is one link-delimited region of a generated file.
type Segment struct {
	Descriptor
	Comment languages.Comment
	// Begin and End are the line indices of the two marker lines.
	Begin int
	End   int
	Items []Item
}

// Generated is a parsed tangled file.
type Generated struct {
	Text       string
	LineStarts []int
	Segments   []*Segment
	// Problems lists malformed marker structure, in file order.
	Problems []string
}

// Parse scans tangled output for link segments and nested anchors.
func Parse(text string) *Generated {
	g := &Generated{Text: text, LineStarts: lineStarts(text)}
	lines := strings.Split(text, "\n")

	var seg *Segment
	var open []*Anchor
	appendItem := func(it Item) {
		if n := len(open); n > 0 {
			open[n-1].Items = append(open[n-1].Items, it)
			return
		}
		seg.Items = append(seg.Items, it)
	}

	for i, line := range lines {
		if seg == nil {
			if d, c, ok := parseLinkBegin(line); ok {
				seg = &Segment{Descriptor: d, Comment: c, Begin: i}
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if n := len(open); n > 0 && trimmed == AnchorEnd(seg.Comment, open[n-1].Name) {
			a := open[n-1]
			a.End = i
			open = open[:n-1]
			appendItem(Item{Line: a.Begin, Anchor: a})
			continue
		}
		if trimmed == LinkEnd(seg.Comment, seg.Descriptor) {
			for _, a := range open {
				g.Problems = append(g.Problems, fmt.Sprintf("line %d: anchor %q is never closed", a.Begin+1, a.Name))
			}
			// unterminated anchors degrade to plain content
			for len(open) > 0 {
				a := open[len(open)-1]
				open = open[:len(open)-1]
				appendItem(Item{Line: a.Begin, Text: lines[a.Begin]})
				for _, it := range a.Items {
					appendItem(it)
				}
			}
			seg.End = i
			g.Segments = append(g.Segments, seg)
			seg = nil
			continue
		}
		if a, ok := parseAnchorBegin(line, seg.Comment); ok {
			a.Begin = i
			open = append(open, a)
			continue
		}
		appendItem(Item{Line: i, Text: line})
	}

	if seg != nil {
		g.Problems = append(g.Problems, fmt.Sprintf("line %d: segment %s has no end marker", seg.Begin+1, seg.Descriptor))
	}
	return g
}

func parseLinkBegin(line string) (Descriptor, languages.Comment, bool) {
	m := linkBeginPattern.FindStringSubmatch(line)
	if m == nil || m[2] == "" {
		return Descriptor{}, languages.Comment{}, false
	}
	index, err := strconv.Atoi(m[5])
	if err != nil {
		return Descriptor{}, languages.Comment{}, false
	}
	label := m[4]
	if label == NoHeading {
		label = ""
	}
	return Descriptor{DocRef: m[3], Label: label, Index: index}, languages.Comment{Start: m[2], End: m[6]}, true
}

func parseAnchorBegin(line string, c languages.Comment) (*Anchor, bool) {
	m := anchorBeginPattern.FindStringSubmatch(line)
	if m == nil || m[2] != c.Start || m[5] != c.End {
		return nil, false
	}
	return &Anchor{Prefix: m[1], DocRef: m[3], Name: m[4]}, true
}

// Body rebuilds the fragment body the segment was generated from, with
// nested anchors collapsed back into noweb markers. The map sends generated
// line indices inside the segment to body line indices.
func (s *Segment) Body() (string, map[int]int) {
	return rebuild(s.Items, "")
}

// Body rebuilds the referent body the anchor was expanded from. The anchor
// prefix is removed from every line that carries it.
func (a *Anchor) Body() (string, map[int]int) {
	return rebuild(a.Items, a.Prefix)
}

// Anchors returns the outermost nested anchors of the segment.
func (s *Segment) Anchors() []*Anchor {
	out := make([]*Anchor, 0)
	for _, it := range s.Items {
		if it.Anchor != nil {
			out = append(out, it.Anchor)
		}
	}
	return out
}

func rebuild(items []Item, strip string) (string, map[int]int) {
	lines := make([]string, 0, len(items))
	lineMap := make(map[int]int)
	for _, it := range items {
		idx := len(lines)
		if a := it.Anchor; a != nil {
			lines = append(lines, strings.TrimPrefix(a.Prefix, strip)+Marker(a.Name))
			for l := a.Begin; l <= a.End; l++ {
				lineMap[l] = idx
			}
			continue
		}
		lines = append(lines, strings.TrimPrefix(it.Text, strip))
		lineMap[it.Line] = idx
	}
	return strings.Join(lines, "\n"), lineMap
}

// SegmentAt returns the segment whose markers enclose the given line index.
func (g *Generated) SegmentAt(line int) *Segment {
	for _, s := range g.Segments {
		if line >= s.Begin && line <= s.End {
			return s
		}
	}
	return nil
}

// Position converts a byte offset into a 0-based line index and column.
func (g *Generated) Position(offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(g.Text) {
		offset = len(g.Text)
	}
	line := 0
	for i, start := range g.LineStarts {
		if start > offset {
			break
		}
		line = i
	}
	return line, offset - g.LineStarts[line]
}

// Line returns the text of a 0-based line index.
func (g *Generated) Line(i int) string {
	if i < 0 || i >= len(g.LineStarts) {
		return ""
	}
	end := len(g.Text)
	if i+1 < len(g.LineStarts) {
		end = g.LineStarts[i+1] - 1
	}
	return g.Text[g.LineStarts[i]:end]
}

func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
