package languages

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Comment is the syntax used to turn a line of text into a comment.
type Comment struct {
	Start string
	End   string
}

// Wrap renders text as a single comment line.
func (c Comment) Wrap(text string) string {
	if c.End == "" {
		return c.Start + " " + text
	}
	return c.Start + " " + text + " " + c.End
}

// Language describes how fragments in one language are written to disk.
type Language struct {
	Name      string
	Aliases   []string
	Extension string
	Comment   Comment
	// grammar is nil for languages without a bundled tree-sitter parser.
	grammar func() *sitter.Language
}

// Registry holds the known languages and extension overrides.
type Registry struct {
	languages map[string]*Language // name or alias -> language
	overrides map[string]string    // language -> extension, beats the table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		languages: make(map[string]*Language),
		overrides: make(map[string]string),
	}
}

// Register adds a language to the registry.
func (r *Registry) Register(lang Language) {
	l := lang
	r.languages[strings.ToLower(l.Name)] = &l
	for _, alias := range l.Aliases {
		r.languages[strings.ToLower(alias)] = &l
	}
}

// SetExtension forces the extension used for a language, regardless of the
// table entry.
func (r *Registry) SetExtension(lang, ext string) {
	r.overrides[strings.ToLower(lang)] = strings.TrimPrefix(ext, ".")
}

// Lookup returns the language registered under name or alias.
func (r *Registry) Lookup(name string) (*Language, bool) {
	l, ok := r.languages[strings.ToLower(strings.TrimSpace(name))]
	return l, ok
}

// Extension returns the file extension (without dot) for a fragment
// language. Unknown languages use their own name.
func (r *Registry) Extension(lang string) string {
	key := strings.ToLower(strings.TrimSpace(lang))
	if ext, ok := r.overrides[key]; ok {
		return ext
	}
	if l, ok := r.languages[key]; ok && l.Extension != "" {
		return l.Extension
	}
	return key
}

// CommentFor returns the line comment syntax for a fragment language,
// falling back to "#".
func (r *Registry) CommentFor(lang string) Comment {
	if l, ok := r.Lookup(lang); ok {
		return l.Comment
	}
	return Comment{Start: "#"}
}
