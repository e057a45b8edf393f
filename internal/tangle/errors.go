package tangle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/morozRed/tangle/internal/trace"
)

// ErrSelfTangle marks a fragment whose target is its own source document.
var ErrSelfTangle = errors.New("target is the source document")

// ConfigurationError aborts a whole tangle run for one document.
type ConfigurationError struct {
	Heading []string
	Target  string
	// Origin names the option layer that supplied the offending value.
	Origin  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if len(e.Heading) > 0 {
		fmt.Fprintf(&b, " under %q", strings.Join(e.Heading, " / "))
	}
	if e.Target != "" {
		fmt.Fprintf(&b, " for target %s", e.Target)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	if e.Origin != "" {
		fmt.Fprintf(&b, " (set by %s)", e.Origin)
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ReferenceError reports a noweb reference that could not be expanded.
type ReferenceError struct {
	Name    string
	Heading []string
	Target  string
	Reason  string
}

func (e *ReferenceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "reference %s", trace.Marker(e.Name))
	if len(e.Heading) > 0 {
		fmt.Fprintf(&b, " in %q", strings.Join(e.Heading, " / "))
	}
	if e.Target != "" {
		fmt.Fprintf(&b, " for target %s", e.Target)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	return b.String()
}

// EmissionError wraps a file-system failure while writing a target.
type EmissionError struct {
	Target string
	Err    error
}

func (e *EmissionError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Target, e.Err)
}

func (e *EmissionError) Unwrap() error { return e.Err }

// DetangleMismatchError reports a trace marker with no matching fragment in
// the document. It never aborts processing of other segments.
type DetangleMismatchError struct {
	Target     string
	Descriptor trace.Descriptor
	Reason     string
}

func (e *DetangleMismatchError) Error() string {
	return fmt.Sprintf("%s: segment %s: %s", e.Target, e.Descriptor, e.Reason)
}
