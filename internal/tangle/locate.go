package tangle

import (
	"fmt"
	"path/filepath"

	"github.com/morozRed/tangle/internal/fileutil"
	"github.com/morozRed/tangle/internal/options"
	"github.com/morozRed/tangle/internal/trace"
)

// Locate returns the block a trace descriptor found in target refers to.
// The occurrence is counted the way Collect numbers it; when target is no
// longer produced by the document, the n-th tangled block under the heading
// label is used instead.
func (p *Plan) Locate(target string, d trace.Descriptor) (*Block, error) {
	groups, err := p.Collect()
	if err != nil {
		return nil, err
	}

	for _, g := range groups {
		if !fileutil.SamePath(g.Target, target) {
			continue
		}
		for _, e := range g.Entries {
			if e.Fragment.HeadingLabel() == d.Label && e.Index == d.Index {
				return e.Block, nil
			}
		}
		return nil, &DetangleMismatchError{Target: target, Descriptor: d, Reason: "no such occurrence under the heading"}
	}

	n := 0
	for _, b := range p.Blocks {
		if b.Fragment.HeadingLabel() != d.Label || b.Options.Tangle.Kind == options.TangleNo {
			continue
		}
		n++
		if n == d.Index {
			return b, nil
		}
	}
	return nil, &DetangleMismatchError{Target: target, Descriptor: d, Reason: "heading or occurrence no longer exists"}
}

// LocateReference returns the only block registered under name.
func (p *Plan) LocateReference(name string) (*Block, error) {
	refs := p.Table.Lookup(name)
	switch len(refs) {
	case 0:
		return nil, &ReferenceError{Name: name, Reason: "no fragment with this name"}
	case 1:
		return refs[0], nil
	default:
		return nil, &ReferenceError{Name: name, Reason: fmt.Sprintf("%d fragments share this name", len(refs))}
	}
}

// Owns reports whether a document reference written into target names the
// document at docPath, or the path recorded when target was generated.
func Owns(docRef, target, docPath, recorded string) bool {
	ref := filepath.FromSlash(docRef)
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(filepath.Dir(target), ref)
	}
	return fileutil.SamePath(ref, docPath) || fileutil.SamePath(ref, recorded)
}
