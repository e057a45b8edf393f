// Package detangle folds edits made in tangled files back into the
// fragments they were generated from.
package detangle

import (
	"errors"
	"fmt"

	"github.com/morozRed/tangle/internal/document"
	"github.com/morozRed/tangle/internal/tangle"
	"github.com/morozRed/tangle/internal/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Options controls one detangle run.
type Options struct {
	Settings tangle.Settings
	// Recorded is the document path the target was generated from. Segments
	// that refer to it belong to the document being updated even when that
	// document now lives under another name.
	Recorded string
	// DryRun computes the new document text without writing it.
	DryRun bool
}

// Change is one fragment body replaced by a detangle run.
type Change struct {
	Descriptor trace.Descriptor `json:"segment"`
	// Reference is set when the change came from a nested noweb anchor.
	Reference string   `json:"reference,omitempty"`
	Heading   []string `json:"heading"`
	Line      int      `json:"line"`
}

// Result is the outcome of detangling one generated file.
type Result struct {
	Target   string   `json:"target"`
	Document string   `json:"document"`
	Applied  int      `json:"applied"`
	Changes  []Change `json:"changes"`
	// Text is the updated document; empty when nothing was applied.
	Text     string `json:"-"`
	Warnings error  `json:"-"`
}

type detangler struct {
	doc     *document.Document
	target  string
	opts    Options
	plan    *tangle.Plan
	logger  *zap.Logger
	edits   map[*document.Fragment]string
	results *Result
}

// Detangle reads the generated file at target and replaces every fragment
// whose traced segment differs from the fragment's current content. The
// document is written through fsys only when at least one body changed.
func Detangle(doc *document.Document, target string, opts Options, fsys tangle.FileSystem) (*Result, error) {
	data, err := fsys.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}

	plan, err := tangle.NewPlan(doc, opts.Settings)
	if err != nil {
		return nil, err
	}

	d := &detangler{
		doc:    doc,
		target: target,
		opts:   opts,
		plan:   plan,
		logger: plan.Settings.Logger,
		edits:  make(map[*document.Fragment]string),
		results: &Result{
			Target:   target,
			Document: doc.Path,
			Changes:  make([]Change, 0),
		},
	}

	generated := trace.Parse(string(data))
	for _, problem := range generated.Problems {
		d.warn(fmt.Errorf("%s: %s", target, problem))
	}
	for _, seg := range generated.Segments {
		if !d.owns(seg.DocRef) {
			d.logger.Debug("segment belongs to another document",
				zap.String("segment", seg.Descriptor.String()),
				zap.String("doc_ref", seg.DocRef))
			continue
		}
		d.segment(seg)
	}

	res := d.results
	res.Applied = len(res.Changes)
	if res.Applied == 0 {
		return res, nil
	}
	res.Text = doc.ReplaceBodies(d.edits)
	if opts.DryRun {
		return res, nil
	}
	if _, err := fsys.WriteFile(doc.Path, []byte(res.Text), 0644, false); err != nil {
		return res, &tangle.EmissionError{Target: doc.Path, Err: err}
	}
	d.logger.Info("detangled",
		zap.String("target", target),
		zap.String("document", doc.Path),
		zap.Int("applied", res.Applied))
	return res, nil
}

func (d *detangler) segment(seg *trace.Segment) {
	b, err := d.plan.Locate(d.target, seg.Descriptor)
	if err != nil {
		d.warn(err)
		return
	}
	if !d.plan.Reversible(b) {
		d.warn(&tangle.DetangleMismatchError{
			Target:     d.target,
			Descriptor: seg.Descriptor,
			Reason:     "fragment expands references without noweb anchors",
		})
		return
	}

	body, _ := seg.Body()
	d.apply(b, body, Change{Descriptor: seg.Descriptor})
	for _, a := range seg.Anchors() {
		d.anchor(seg, a)
	}
}

func (d *detangler) anchor(seg *trace.Segment, a *trace.Anchor) {
	if !d.owns(a.DocRef) {
		return
	}
	b, err := d.plan.LocateReference(a.Name)
	if err != nil {
		d.warn(fmt.Errorf("%s: segment %s: %w", d.target, seg.Descriptor, err))
		return
	}
	if !d.plan.Reversible(b) {
		d.warn(&tangle.DetangleMismatchError{
			Target:     d.target,
			Descriptor: seg.Descriptor,
			Reason:     fmt.Sprintf("reference %s expands references without noweb anchors", trace.Marker(a.Name)),
		})
		return
	}

	body, _ := a.Body()
	d.apply(b, body, Change{Descriptor: seg.Descriptor, Reference: a.Name})
	for _, it := range a.Items {
		if it.Anchor != nil {
			d.anchor(seg, it.Anchor)
		}
	}
}

// apply records a new body for b unless it matches the current content.
func (d *detangler) apply(b *tangle.Block, body string, c Change) {
	f := b.Fragment
	if previous, ok := d.edits[f]; ok {
		if previous != body {
			d.warn(fmt.Errorf("%s: segment %s: conflicting edits for the same fragment, keeping the first", d.target, c.Descriptor))
		}
		return
	}
	if body == f.Content() {
		return
	}
	d.edits[f] = body
	c.Heading = f.Heading.Path()
	c.Line, _ = d.doc.LineColumn(f.BodyStart)
	d.results.Changes = append(d.results.Changes, c)
	d.logger.Debug("fragment changed",
		zap.String("segment", c.Descriptor.String()),
		zap.String("reference", c.Reference))
}

func (d *detangler) owns(docRef string) bool {
	return tangle.Owns(docRef, d.target, d.doc.Path, d.opts.Recorded)
}

func (d *detangler) warn(err error) {
	var mismatch *tangle.DetangleMismatchError
	if errors.As(err, &mismatch) {
		d.logger.Warn("detangle mismatch", zap.Error(err))
	} else {
		d.logger.Warn("detangle warning", zap.Error(err))
	}
	d.results.Warnings = multierr.Append(d.results.Warnings, err)
}
