package options

import (
	"fmt"

	opts "github.com/goliatone/go-options"
)

// Layer is one source of header arguments, such as the run defaults, a
// heading's property drawer or a block's own header line.
type Layer struct {
	Origin string
	Args   Set
}

// Stack is a merged set of layers that remembers which layer supplied each
// value.
type Stack struct {
	Merged  Set
	origins map[string]string
}

// Merge composes layers ordered from weakest to strongest. A key set by a
// later layer replaces the value inherited from every earlier layer, and the
// inputs are never modified.
func Merge(layers ...Layer) (*Stack, error) {
	if len(layers) == 0 {
		return &Stack{Merged: Set{}, origins: map[string]string{}}, nil
	}

	scoped := make([]opts.Layer[Set], 0, len(layers))
	for i, l := range layers {
		args := l.Args
		if args == nil {
			args = Set{}
		}
		scope := opts.NewScope(fmt.Sprintf("layer-%d", i), i+1, opts.WithScopeLabel(l.Origin))
		scoped = append(scoped, opts.NewLayer(scope, args))
	}
	stack, err := opts.NewStack(scoped...)
	if err != nil {
		return nil, fmt.Errorf("failed to order option layers: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return nil, fmt.Errorf("failed to merge option layers: %w", err)
	}

	out := &Stack{Merged: merged.Value, origins: make(map[string]string)}
	if out.Merged == nil {
		out.Merged = Set{}
	}
	// strongest first
	for _, l := range stack.Layers() {
		for key := range l.Snapshot {
			if _, seen := out.origins[key]; !seen {
				out.origins[key] = l.Scope.Label
			}
		}
	}
	return out, nil
}

// Origin returns the layer that supplied the effective value of key.
func (s *Stack) Origin(key string) string {
	return s.origins[key]
}

// Origins returns the supplying layer of every merged key.
func (s *Stack) Origins() map[string]string {
	out := make(map[string]string, len(s.origins))
	for k, v := range s.origins {
		out[k] = v
	}
	return out
}
