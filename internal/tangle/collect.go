package tangle

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/morozRed/tangle/internal/document"
	"github.com/morozRed/tangle/internal/fileutil"
	"github.com/morozRed/tangle/internal/options"
	"go.uber.org/zap"
)

// Entry is one fragment's contribution to a target file.
type Entry struct {
	*Block
	// Index is the 1-based occurrence of this fragment among the fragments
	// under the same heading label written to the same target.
	Index int
}

// Group is a target file and the fragments written to it, in document
// order.
type Group struct {
	Target  string
	Entries []Entry
}

// Collect groups the tangled fragments of doc by target file.
func Collect(doc *document.Document, s Settings) ([]Group, error) {
	p, err := NewPlan(doc, s)
	if err != nil {
		return nil, err
	}
	return p.Collect()
}

// Collect groups the plan's blocks by target. Groups appear in the order
// their first fragment appears in the document.
func (p *Plan) Collect() ([]Group, error) {
	if p.groups != nil {
		return p.groups, nil
	}
	groups := make([]Group, 0)
	byTarget := make(map[string]int)
	occurrences := make(map[string]map[string]int)

	for _, b := range p.Blocks {
		if !p.Settings.wantsLanguage(b.Fragment.Language) {
			continue
		}
		target, err := p.ResolveTarget(b)
		if err != nil {
			return nil, err
		}
		if target == "" {
			continue
		}

		label := b.Fragment.HeadingLabel()
		if occurrences[target] == nil {
			occurrences[target] = make(map[string]int)
		}
		occurrences[target][label]++

		idx, ok := byTarget[target]
		if !ok {
			idx = len(groups)
			byTarget[target] = idx
			groups = append(groups, Group{Target: target})
		}
		groups[idx].Entries = append(groups[idx].Entries, Entry{Block: b, Index: occurrences[target][label]})

		p.Settings.Logger.Debug("collected fragment",
			zap.String("target", target),
			zap.String("heading", label),
			zap.Int("index", occurrences[target][label]))
	}
	p.groups = groups
	return groups, nil
}

// ResolveTarget returns the cleaned target path of b, or "" when the block
// is not tangled.
func (p *Plan) ResolveTarget(b *Block) (string, error) {
	doc := p.Document
	fail := func(target string, err error) (string, error) {
		return "", &ConfigurationError{
			Heading: b.Fragment.Heading.Path(),
			Target:  target,
			Origin:  b.Options.Origins[options.KeyTangle],
			Err:     err,
		}
	}

	var target string
	switch b.Options.Tangle.Kind {
	case options.TangleNo:
		return "", nil
	case options.TangleYes:
		if doc.Path == "" {
			return fail("", errors.New("document has no file name to derive a target from"))
		}
		if b.Fragment.Language == "" {
			return fail("", errors.New("fragment has no language to derive an extension from"))
		}
		base := strings.TrimSuffix(doc.Path, filepath.Ext(doc.Path))
		target = base + "." + p.Settings.Registry.Extension(b.Fragment.Language)
	case options.TanglePath:
		expanded, err := fileutil.ExpandHome(b.Options.Tangle.Path, p.Settings.HomeDir)
		if err != nil {
			return fail(b.Options.Tangle.Path, fmt.Errorf("failed to expand home directory: %w", err))
		}
		target = expanded
		if !filepath.IsAbs(target) && doc.Path != "" {
			target = filepath.Join(filepath.Dir(doc.Path), target)
		}
	}

	target = filepath.Clean(target)
	if fileutil.SamePath(target, doc.Path) {
		return fail(target, ErrSelfTangle)
	}
	return target, nil
}
