package tangle

import (
	"strings"

	"github.com/morozRed/tangle/internal/languages"
	"github.com/morozRed/tangle/internal/options"
	"go.uber.org/zap"
)

// DefaultMaxDepth bounds nested noweb expansion.
const DefaultMaxDepth = 64

// Settings is the immutable configuration threaded through one run.
type Settings struct {
	// RelativeLinks renders document references in trace markers relative
	// to the target's directory.
	RelativeLinks bool
	// Strict turns unresolved noweb references into errors.
	Strict   bool
	MaxDepth int
	// Defaults is the weakest option layer, below the document's own.
	Defaults options.Set
	Registry *languages.Registry
	// HomeDir expands "~" in target paths; empty means the user's home.
	HomeDir string
	// Languages restricts which fragments are tangled; empty means all.
	Languages []string
	// Check parses emitted targets with a bundled grammar.
	Check  bool
	Logger *zap.Logger
}

// DefaultSettings returns settings with relative links and the built-in
// language table.
func DefaultSettings() Settings {
	return Settings{
		RelativeLinks: true,
		MaxDepth:      DefaultMaxDepth,
		Registry:      languages.NewDefaultRegistry(),
	}
}

func (s Settings) normalized() Settings {
	if s.MaxDepth <= 0 {
		s.MaxDepth = DefaultMaxDepth
	}
	if s.Registry == nil {
		s.Registry = languages.NewDefaultRegistry()
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	return s
}

func (s Settings) wantsLanguage(lang string) bool {
	if len(s.Languages) == 0 {
		return true
	}
	canonical := strings.ToLower(lang)
	if l, ok := s.Registry.Lookup(lang); ok {
		canonical = strings.ToLower(l.Name)
	}
	for _, want := range s.Languages {
		w := strings.ToLower(strings.TrimSpace(want))
		if l, ok := s.Registry.Lookup(want); ok {
			w = strings.ToLower(l.Name)
		}
		if w == canonical {
			return true
		}
	}
	return false
}
