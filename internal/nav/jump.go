// Package nav maps positions in tangled files back to their source
// documents.
package nav

import (
	"fmt"
	"strings"

	"github.com/morozRed/tangle/internal/document"
	"github.com/morozRed/tangle/internal/tangle"
	"github.com/morozRed/tangle/internal/trace"
)

// Options controls how a generated file is associated with its document.
type Options struct {
	Settings tangle.Settings
	// Recorded is the document path the target was generated from.
	Recorded string
}

// Position is a location inside a source document.
type Position struct {
	Document string           `json:"document"`
	Offset   int              `json:"offset"`
	Line     int              `json:"line"`
	Column   int              `json:"column"`
	Heading  []string         `json:"heading"`
	Segment  trace.Descriptor `json:"segment"`
	// Reference is set when the position lies inside a nested noweb
	// expansion.
	Reference string `json:"reference,omitempty"`
}

// Jump maps a byte offset in the generated file at target to the matching
// offset inside the fragment body it came from. Positions on marker lines
// are clamped to the start or end of the body.
func Jump(doc *document.Document, target string, offset int, opts Options, fsys tangle.FileSystem) (*Position, error) {
	data, err := fsys.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	generated := trace.Parse(string(data))

	line, col := generated.Position(offset)
	seg := generated.SegmentAt(line)
	if seg == nil {
		return nil, fmt.Errorf("%s:%d is not inside a traced fragment", target, line+1)
	}
	if !tangle.Owns(seg.DocRef, target, doc.Path, opts.Recorded) {
		return nil, fmt.Errorf("%s:%d belongs to %s, not %s", target, line+1, seg.DocRef, doc.Path)
	}

	plan, err := tangle.NewPlan(doc, opts.Settings)
	if err != nil {
		return nil, err
	}

	anchor := innermostAnchor(seg.Items, line, target, doc.Path, opts.Recorded)
	pos := &Position{Document: doc.Path, Segment: seg.Descriptor}

	var (
		block   *tangle.Block
		lineMap map[int]int
		strip   string
	)
	if anchor != nil {
		block, err = plan.LocateReference(anchor.Name)
		_, lineMap = anchor.Body()
		strip = anchor.Prefix
		pos.Reference = anchor.Name
	} else {
		block, err = plan.Locate(target, seg.Descriptor)
		_, lineMap = seg.Body()
	}
	if err != nil {
		return nil, err
	}

	bodyLine, bodyCol := -1, 0
	switch {
	case line == seg.Begin:
		bodyLine = 0
	case line == seg.End:
	default:
		bodyLine = lineMap[line]
		if text := generated.Line(line); strip != "" && strings.HasPrefix(text, strip) {
			col -= len(strip)
		}
		bodyCol = max(col, 0)
	}

	f := block.Fragment
	pos.Offset = bodyOffset(f, bodyLine, bodyCol)
	pos.Line, pos.Column = doc.LineColumn(pos.Offset)
	pos.Heading = f.Heading.Path()
	return pos, nil
}

func innermostAnchor(items []trace.Item, line int, target, docPath, recorded string) *trace.Anchor {
	var found *trace.Anchor
	for {
		var next *trace.Anchor
		for _, it := range items {
			if a := it.Anchor; a != nil && line > a.Begin && line < a.End {
				next = a
				break
			}
		}
		if next == nil || !tangle.Owns(next.DocRef, target, docPath, recorded) {
			return found
		}
		found = next
		items = next.Items
	}
}

// bodyOffset converts a line and column of the unescaped body into a
// document offset. A negative line means the end of the body.
func bodyOffset(f *document.Fragment, line, col int) int {
	raw := strings.Split(f.Body, "\n")
	if line < 0 || line >= len(raw) {
		return f.BodyEnd
	}
	offset := f.BodyStart
	for i := 0; i < line; i++ {
		offset += len(raw[i]) + 1
	}
	return offset + min(f.RawColumn(line, col), len(raw[line]))
}
