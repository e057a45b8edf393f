package tangle

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/morozRed/tangle/internal/languages"
	"github.com/morozRed/tangle/internal/options"
	"github.com/morozRed/tangle/internal/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var markerPattern = regexp.MustCompile(`<<([^\s<>](?:[^<>\n]*?[^\s<>])?)>>`)

// Marker is one noweb reference found in a body line.
type Marker struct {
	Name  string
	Start int
	End   int
}

// FindMarkers returns the noweb references on a line, left to right.
func FindMarkers(line string) []Marker {
	matches := markerPattern.FindAllStringSubmatchIndex(line, -1)
	out := make([]Marker, 0, len(matches))
	for _, m := range matches {
		out = append(out, Marker{Name: line[m[2]:m[3]], Start: m[0], End: m[1]})
	}
	return out
}

// Resolver expands noweb references for one consumer context.
type Resolver struct {
	table    *ReferenceTable
	ctx      options.Context
	maxDepth int
	strict   bool
	logger   *zap.Logger
	// Anchor rendering for the fragment being emitted.
	docRef  string
	comment languages.Comment
	// Warnings collects unresolved and unsupported references.
	Warnings error
}

// NewResolver creates a resolver over the plan's reference table.
func (p *Plan) NewResolver(ctx options.Context) *Resolver {
	return &Resolver{
		table:    p.Table,
		ctx:      ctx,
		maxDepth: p.Settings.MaxDepth,
		strict:   p.Settings.Strict,
		logger:   p.Settings.Logger,
	}
}

// WithAnchors sets how nested expansions are labeled when a block asks for
// noweb comments.
func (r *Resolver) WithAnchors(docRef string, comment languages.Comment) *Resolver {
	r.docRef = docRef
	r.comment = comment
	return r
}

// Expand returns the body of b with references resolved according to its
// noweb mode.
func (r *Resolver) Expand(b *Block) (string, error) {
	return r.expand(b, 0, nil)
}

// ExpandName returns the concatenated expansion of every block registered
// under name.
func (r *Resolver) ExpandName(name string) (string, error) {
	refs := r.table.Lookup(name)
	if len(refs) == 0 {
		reason := "no fragment with this name"
		if known := r.table.Names(); len(known) > 0 {
			reason += " (known: " + strings.Join(known, ", ") + ")"
		}
		return "", &ReferenceError{Name: name, Reason: reason}
	}
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		text, err := r.expand(ref, 1, []string{name})
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), nil
}

func (r *Resolver) expand(b *Block, depth int, stack []string) (string, error) {
	body := b.Fragment.Content()
	action := b.Options.Noweb.Action(r.ctx)
	if action == options.ActionVerbatim {
		return body, nil
	}

	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		expanded, err := r.expandLine(b, line, action, depth, stack)
		if err != nil {
			return "", err
		}
		out = append(out, expanded)
	}
	return strings.Join(out, "\n"), nil
}

func (r *Resolver) expandLine(b *Block, line string, action options.Action, depth int, stack []string) (string, error) {
	markers := FindMarkers(line)
	if len(markers) == 0 {
		return line, nil
	}

	var sb strings.Builder
	last := 0
	for _, m := range markers {
		sb.WriteString(line[last:m.Start])
		last = m.End

		if action == options.ActionStrip {
			continue
		}
		if strings.Contains(m.Name, "(") {
			r.warn(b, "reference %s passes arguments, which are not supported", trace.Marker(m.Name))
			sb.WriteString(line[m.Start:m.End])
			continue
		}

		refs := r.table.Lookup(m.Name)
		if len(refs) == 0 {
			if r.strict {
				return "", &ReferenceError{Name: m.Name, Heading: b.Fragment.Heading.Path(), Reason: "no fragment with this name"}
			}
			r.warn(b, "unresolved reference %s", trace.Marker(m.Name))
			sb.WriteString(line[m.Start:m.End])
			continue
		}
		if slices.Contains(stack, m.Name) {
			return "", &ReferenceError{
				Name:    m.Name,
				Heading: b.Fragment.Heading.Path(),
				Reason:  "cycle through " + strings.Join(append(stack, m.Name), " -> "),
			}
		}
		if depth+1 > r.maxDepth {
			return "", &ReferenceError{
				Name:    m.Name,
				Heading: b.Fragment.Heading.Path(),
				Reason:  fmt.Sprintf("expansion deeper than %d levels", r.maxDepth),
			}
		}

		parts := make([]string, 0, len(refs))
		next := append(slices.Clone(stack), m.Name)
		for _, ref := range refs {
			text, err := r.expand(ref, depth+1, next)
			if err != nil {
				return "", err
			}
			parts = append(parts, text)
		}
		content := strings.Join(parts, "\n")

		prefix := ""
		if b.Options.NowebPrefix {
			prefix = leadingWhitespace(line[:m.Start])
		}
		standalone := strings.TrimSpace(line) == line[m.Start:m.End]
		if standalone && r.anchored(b) {
			// the marker owns the whole line, so sb holds only its indentation
			sb.WriteString(trace.AnchorBegin(r.comment, r.docRef, m.Name))
			sb.WriteString("\n")
			sb.WriteString(indentAll(content, prefix))
			sb.WriteString("\n")
			sb.WriteString(line[:m.Start])
			sb.WriteString(trace.AnchorEnd(r.comment, m.Name))
			continue
		}
		sb.WriteString(indentTail(content, prefix))
	}
	sb.WriteString(line[last:])
	return sb.String(), nil
}

func (r *Resolver) anchored(b *Block) bool {
	return r.ctx == options.ContextTangle && b.Options.Comments == options.CommentNoweb && r.comment.Start != ""
}

func (r *Resolver) warn(b *Block, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if path := b.Fragment.Heading.Path(); len(path) > 0 {
		msg = fmt.Sprintf("%s (in %q)", msg, strings.Join(path, " / "))
	}
	r.logger.Warn(msg)
	r.Warnings = multierr.Append(r.Warnings, errors.New(msg))
}

// Reversible reports whether the tangled form of b can be folded back into
// its body: every expanded reference must stand alone on its line and be
// wrapped in noweb anchors.
func (p *Plan) Reversible(b *Block) bool {
	action := b.Options.Noweb.Action(options.ContextTangle)
	if action == options.ActionVerbatim {
		return true
	}
	for _, line := range strings.Split(b.Fragment.Content(), "\n") {
		for _, m := range FindMarkers(line) {
			if action == options.ActionStrip {
				return false
			}
			if strings.Contains(m.Name, "(") || len(p.Table.Lookup(m.Name)) == 0 {
				continue
			}
			if b.Options.Comments != options.CommentNoweb {
				return false
			}
			if strings.TrimSpace(line) != line[m.Start:m.End] {
				return false
			}
		}
	}
	return true
}

func leadingWhitespace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

func indentTail(content, prefix string) string {
	if prefix == "" {
		return content
	}
	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = prefix + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func indentAll(content, prefix string) string {
	if prefix == "" {
		return content
	}
	lines := strings.Split(content, "\n")
	for i := range lines {
		if lines[i] != "" {
			lines[i] = prefix + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
