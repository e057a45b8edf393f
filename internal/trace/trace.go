// Package trace renders and parses the traceability comments written into
// tangled files.
//
// A link segment looks like
//
//	# [[file:notes.org][Setup:1]]
//	...fragment body...
//	# Setup:1 ends here
//
// and a noweb anchor nested inside it like
//
//	# [[file:notes.org::helpers]]
//	...expansion of <<helpers>>...
//	# helpers ends here
package trace

import (
	"fmt"

	"github.com/morozRed/tangle/internal/languages"
)

// NoHeading labels fragments that appear before the first heading.
const NoHeading = "No heading"

const (
	MarkerOpen  = "<<"
	MarkerClose = ">>"
)

// Marker renders a noweb reference to name.
func Marker(name string) string {
	return MarkerOpen + name + MarkerClose
}

// Descriptor identifies the fragment a generated segment came from.
type Descriptor struct {
	DocRef string `json:"doc_ref"`
	Label  string `json:"label"`
	Index  int    `json:"index"`
}

// DisplayLabel returns the label as written in markers.
func (d Descriptor) DisplayLabel() string {
	if d.Label == "" {
		return NoHeading
	}
	return d.Label
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s:%d", d.DisplayLabel(), d.Index)
}

// LinkBegin renders the line opening a link segment.
func LinkBegin(c languages.Comment, d Descriptor) string {
	return c.Wrap(fmt.Sprintf("[[file:%s][%s]]", d.DocRef, d.String()))
}

// LinkEnd renders the line closing a link segment.
func LinkEnd(c languages.Comment, d Descriptor) string {
	return c.Wrap(d.String() + " ends here")
}

// AnchorBegin renders the line opening a nested noweb expansion.
func AnchorBegin(c languages.Comment, docRef, name string) string {
	return c.Wrap(fmt.Sprintf("[[file:%s::%s]]", docRef, name))
}

// AnchorEnd renders the line closing a nested noweb expansion.
func AnchorEnd(c languages.Comment, name string) string {
	return c.Wrap(name + " ends here")
}
