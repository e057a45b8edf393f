package tangle

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/morozRed/tangle/internal/document"
	"github.com/morozRed/tangle/internal/fileutil"
	"github.com/morozRed/tangle/internal/languages"
	"github.com/morozRed/tangle/internal/options"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Target is the rendered content of one output file.
type Target struct {
	Path      string                  `json:"path"`
	Content   string                  `json:"-"`
	Mode      fs.FileMode             `json:"mode"`
	Mkdirp    bool                    `json:"-"`
	Fragments int                     `json:"fragments"`
	Hash      string                  `json:"hash"`
	Changed   bool                    `json:"changed"`
	Issues    []languages.SyntaxIssue `json:"issues,omitempty"`
}

// Result is the outcome of rendering or tangling one document.
type Result struct {
	Document string   `json:"document"`
	Targets  []Target `json:"targets"`
	// Warnings holds non-fatal findings; iterate with multierr.Errors.
	Warnings error `json:"-"`
}

// Render computes the content of every target of doc without writing.
func Render(doc *document.Document, s Settings) (*Result, error) {
	p, err := NewPlan(doc, s)
	if err != nil {
		return nil, err
	}
	return p.Render()
}

// Tangle renders doc and writes every target. Nothing is written when
// rendering fails.
func Tangle(doc *document.Document, s Settings, fsys FileSystem) (*Result, error) {
	p, err := NewPlan(doc, s)
	if err != nil {
		return nil, err
	}
	res, err := p.Render()
	if err != nil {
		return nil, err
	}
	if err := p.Write(res, fsys); err != nil {
		return res, err
	}
	return res, nil
}

// Render computes the content of every target.
func (p *Plan) Render() (*Result, error) {
	if p.Document.Path == "" {
		return nil, &ConfigurationError{Err: errors.New("document has no file name to link targets to")}
	}
	groups, err := p.Collect()
	if err != nil {
		return nil, err
	}

	res := &Result{Document: p.Document.Path, Targets: make([]Target, 0, len(groups))}
	for _, g := range groups {
		t, err := p.renderGroup(g, res)
		if err != nil {
			return nil, err
		}
		res.Targets = append(res.Targets, t)
	}
	return res, nil
}

// Write hands every rendered target to fsys.
func (p *Plan) Write(res *Result, fsys FileSystem) error {
	for i := range res.Targets {
		t := &res.Targets[i]
		changed, err := fsys.WriteFile(t.Path, []byte(t.Content), t.Mode, t.Mkdirp)
		if err != nil {
			return &EmissionError{Target: t.Path, Err: err}
		}
		t.Changed = changed
		p.Settings.Logger.Debug("wrote target",
			zap.String("target", t.Path),
			zap.Bool("changed", changed),
			zap.Int("fragments", t.Fragments))
	}
	return nil
}

func (p *Plan) renderGroup(g Group, res *Result) (Target, error) {
	t := Target{Path: g.Target, Fragments: len(g.Entries)}
	shebang := ""
	for _, e := range g.Entries {
		if shebang == "" {
			shebang = e.Options.Shebang
		}
		if t.Mode == 0 {
			t.Mode = e.Options.Mode
		}
		t.Mkdirp = t.Mkdirp || e.Options.Mkdirp
	}
	if t.Mode == 0 {
		t.Mode = 0644
		if shebang != "" {
			t.Mode = 0755
		}
	}

	var sb strings.Builder
	if shebang != "" {
		sb.WriteString(shebang)
		sb.WriteString("\n")
	}
	docRef := p.DocRef(g.Target)
	for _, e := range g.Entries {
		c := p.Settings.Registry.CommentFor(e.Fragment.Language)
		r := p.NewResolver(options.ContextTangle).WithAnchors(docRef, c)
		body, err := r.Expand(e.Block)
		if err != nil {
			var refErr *ReferenceError
			if errors.As(err, &refErr) && refErr.Target == "" {
				refErr.Target = g.Target
			}
			return t, err
		}
		res.Warnings = multierr.Append(res.Warnings, r.Warnings)
		sb.WriteString(annotate(e, body, c, docRef))
	}
	t.Content = sb.String()
	t.Hash = fileutil.HashBytes([]byte(t.Content))

	if p.Settings.Check {
		lang := g.Entries[0].Fragment.Language
		issues, supported, err := p.Settings.Registry.Check(lang, []byte(t.Content))
		switch {
		case err != nil:
			res.Warnings = multierr.Append(res.Warnings, err)
		case supported:
			t.Issues = issues
			for _, issue := range issues {
				p.Settings.Logger.Warn("syntax issue in tangled output",
					zap.String("target", t.Path),
					zap.Stringer("issue", issue))
				res.Warnings = multierr.Append(res.Warnings, fmt.Errorf("%s:%s", t.Path, issue))
			}
		}
	}
	return t, nil
}

// Expansion is the text produced for a noweb reference.
type Expansion struct {
	Name     string `json:"name"`
	Text     string `json:"text"`
	Warnings error  `json:"-"`
}

// ExpandReference returns the expansion of every block named name in the
// given consumer context.
func (p *Plan) ExpandReference(name string, ctx options.Context) (*Expansion, error) {
	r := p.NewResolver(ctx)
	text, err := r.ExpandName(name)
	if err != nil {
		return nil, err
	}
	return &Expansion{Name: name, Text: text, Warnings: r.Warnings}, nil
}
