package tangle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/morozRed/tangle/internal/document"
	"github.com/morozRed/tangle/internal/options"
	"go.uber.org/zap"
)

// Block is a non-excluded fragment together with its effective options.
type Block struct {
	Fragment *document.Fragment
	Options  options.Resolved
}

// Names returns the names the block answers to in noweb references.
func (b *Block) Names() []string {
	names := make([]string, 0, 2)
	if b.Fragment.Name != "" {
		names = append(names, b.Fragment.Name)
	}
	if ref := b.Options.NowebRef; ref != "" && ref != b.Fragment.Name {
		names = append(names, ref)
	}
	return names
}

// Plan is the resolved view of one document snapshot shared by every stage
// of the pipeline.
type Plan struct {
	Document *document.Document
	Settings Settings
	// Blocks lists every non-excluded fragment in document order.
	Blocks []*Block
	Table  *ReferenceTable

	groups []Group
}

// NewPlan resolves options for every fragment of doc. Invalid option values
// are configuration errors.
func NewPlan(doc *document.Document, s Settings) (*Plan, error) {
	s = s.normalized()
	p := &Plan{Document: doc, Settings: s}

	for _, f := range doc.Fragments() {
		if f.Excluded() {
			s.Logger.Debug("skipping excluded fragment",
				zap.String("heading", strings.Join(f.Heading.Path(), " / ")),
				zap.Int("seq", f.Seq))
			continue
		}
		stack, err := EffectiveOptions(doc, f, s.Defaults)
		if err != nil {
			return nil, &ConfigurationError{Heading: f.Heading.Path(), Err: err}
		}
		resolved, err := options.Resolve(stack.Merged)
		if err != nil {
			cerr := &ConfigurationError{Heading: f.Heading.Path(), Err: err}
			var verr *options.ValueError
			if errors.As(err, &verr) {
				cerr.Origin = stack.Origin(verr.Key)
			}
			return nil, cerr
		}
		resolved.Origins = stack.Origins()
		p.Blocks = append(p.Blocks, &Block{Fragment: f, Options: resolved})
	}

	p.Table = NewReferenceTable(p.Blocks)
	return p, nil
}

// EffectiveOptions merges, weakest first, the run defaults, the document
// defaults, every heading from the root down and the fragment's own header.
// At each level language-specific arguments override general ones.
func EffectiveOptions(doc *document.Document, f *document.Fragment, defaults options.Set) (*options.Stack, error) {
	layers := []options.Layer{{Origin: "defaults", Args: defaults}}
	layers = append(layers, languageLayers("document", doc.Defaults, f.Language)...)
	if f.Heading != nil {
		for _, h := range f.Heading.Chain() {
			if h.Level == 0 {
				continue
			}
			origin := fmt.Sprintf("heading %q", strings.Join(h.Path(), " / "))
			layers = append(layers, languageLayers(origin, h.Properties, f.Language)...)
		}
	}
	if f.Name != "" {
		layers = append(layers, options.Layer{Origin: "block name", Args: options.Set{options.KeyName: f.Name}})
	}
	layers = append(layers, options.Layer{Origin: "block header", Args: f.Header})
	return options.Merge(layers...)
}

func languageLayers(origin string, args []document.HeaderArgs, lang string) []options.Layer {
	out := make([]options.Layer, 0, len(args))
	for _, a := range args {
		if a.Language == "" {
			out = append(out, options.Layer{Origin: origin, Args: a.Args})
		}
	}
	for _, a := range args {
		if a.Language != "" && strings.EqualFold(a.Language, lang) {
			out = append(out, options.Layer{Origin: origin + " (" + a.Language + ")", Args: a.Args})
		}
	}
	return out
}
