package tangle

import (
	"path/filepath"
	"strings"

	"github.com/morozRed/tangle/internal/languages"
	"github.com/morozRed/tangle/internal/options"
	"github.com/morozRed/tangle/internal/trace"
)

// DocRef renders the document reference used in markers of target.
func (p *Plan) DocRef(target string) string {
	doc := p.Document.Path
	if p.Settings.RelativeLinks {
		if rel, err := filepath.Rel(filepath.Dir(target), doc); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	if abs, err := filepath.Abs(doc); err == nil {
		doc = abs
	}
	return filepath.ToSlash(doc)
}

// annotate wraps an expanded body in the markers its comment mode asks for.
// Every segment ends with a newline.
func annotate(e Entry, body string, c languages.Comment, docRef string) string {
	var sb strings.Builder
	mode := e.Options.Comments

	if mode == options.CommentOrg || mode == options.CommentBoth {
		for _, line := range orgCommentLines(e) {
			sb.WriteString(c.Wrap(line))
			sb.WriteString("\n")
		}
	}

	d := trace.Descriptor{DocRef: docRef, Label: e.Fragment.HeadingLabel(), Index: e.Index}
	if mode.Links() {
		sb.WriteString(trace.LinkBegin(c, d))
		sb.WriteString("\n")
	}
	sb.WriteString(body)
	sb.WriteString("\n")
	if mode.Links() {
		sb.WriteString(trace.LinkEnd(c, d))
		sb.WriteString("\n")
	}
	return sb.String()
}

// orgCommentLines returns the prose preceding the fragment, or its heading
// label when there is none.
func orgCommentLines(e Entry) []string {
	text := strings.TrimSpace(e.Fragment.Preamble)
	if text == "" {
		text = e.Fragment.HeadingLabel()
	}
	if text == "" {
		return nil
	}
	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
