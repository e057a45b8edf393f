package languages

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

var (
	hash      = Comment{Start: "#"}
	slashes   = Comment{Start: "//"}
	dashes    = Comment{Start: "--"}
	semicolon = Comment{Start: ";;"}
	percent   = Comment{Start: "%"}
)

var builtin = []Language{
	{Name: "go", Aliases: []string{"golang"}, Extension: "go", Comment: slashes, grammar: golang.GetLanguage},
	{Name: "python", Aliases: []string{"py", "python3"}, Extension: "py", Comment: hash, grammar: python.GetLanguage},
	{Name: "ruby", Aliases: []string{"rb"}, Extension: "rb", Comment: hash, grammar: ruby.GetLanguage},
	{Name: "javascript", Aliases: []string{"js", "node"}, Extension: "js", Comment: slashes, grammar: javascript.GetLanguage},
	{Name: "typescript", Aliases: []string{"ts"}, Extension: "ts", Comment: slashes, grammar: typescript.GetLanguage},
	{Name: "sh", Aliases: []string{"shell", "bash", "zsh"}, Extension: "sh", Comment: hash, grammar: bash.GetLanguage},
	{Name: "emacs-lisp", Aliases: []string{"elisp"}, Extension: "el", Comment: semicolon},
	{Name: "lisp", Extension: "lisp", Comment: semicolon},
	{Name: "scheme", Extension: "scm", Comment: semicolon},
	{Name: "clojure", Extension: "clj", Comment: semicolon},
	{Name: "c", Extension: "c", Comment: slashes},
	{Name: "cpp", Aliases: []string{"c++"}, Extension: "cpp", Comment: slashes},
	{Name: "java", Extension: "java", Comment: slashes},
	{Name: "rust", Extension: "rs", Comment: slashes},
	{Name: "haskell", Extension: "hs", Comment: dashes},
	{Name: "lua", Extension: "lua", Comment: dashes},
	{Name: "sql", Extension: "sql", Comment: dashes},
	{Name: "perl", Extension: "pl", Comment: hash},
	{Name: "R", Extension: "R", Comment: hash},
	{Name: "awk", Extension: "awk", Comment: hash},
	{Name: "yaml", Extension: "yaml", Comment: hash},
	{Name: "toml", Extension: "toml", Comment: hash},
	{Name: "conf", Extension: "conf", Comment: hash},
	{Name: "makefile", Extension: "mk", Comment: hash},
	{Name: "latex", Aliases: []string{"tex"}, Extension: "tex", Comment: percent},
	{Name: "bibtex", Aliases: []string{"bib"}, Extension: "bib", Comment: percent},
	{Name: "css", Extension: "css", Comment: Comment{Start: "/*", End: "*/"}},
	{Name: "html", Extension: "html", Comment: Comment{Start: "<!--", End: "-->"}},
	{Name: "ocaml", Extension: "ml", Comment: Comment{Start: "(*", End: "*)"}},
	{Name: "fortran", Extension: "f90", Comment: Comment{Start: "!"}},
}

// defaultExtensions pins extensions for formats whose declared language name
// differs from the conventional file type.
var defaultExtensions = map[string]string{
	"bibtex":     "bib",
	"emacs-lisp": "el",
	"elisp":      "el",
}

// NewDefaultRegistry creates a registry with every built-in language and
// the default extension overrides.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, lang := range builtin {
		r.Register(lang)
	}
	for lang, ext := range defaultExtensions {
		r.SetExtension(lang, ext)
	}
	return r
}

// Grammar returns the tree-sitter grammar for a language, if bundled.
func (l *Language) Grammar() (*sitter.Language, bool) {
	if l == nil || l.grammar == nil {
		return nil, false
	}
	return l.grammar(), true
}
