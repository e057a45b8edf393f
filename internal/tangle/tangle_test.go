package tangle

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/morozRed/tangle/internal/document"
	"github.com/morozRed/tangle/internal/options"
	"github.com/morozRed/tangle/internal/trace"
	"go.uber.org/multierr"
)

type memFS struct {
	files  map[string]string
	modes  map[string]fs.FileMode
	dirs   map[string]bool
	writes int
}

func newMemFS(dirs ...string) *memFS {
	m := &memFS{files: map[string]string{}, modes: map[string]fs.FileMode{}, dirs: map[string]bool{}}
	for _, d := range dirs {
		m.dirs[d] = true
	}
	return m
}

func (m *memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(data), nil
}

func (m *memFS) WriteFile(path string, data []byte, perm fs.FileMode, mkdirp bool) (bool, error) {
	dir := filepath.Dir(path)
	if !m.dirs[dir] {
		if !mkdirp {
			return false, fs.ErrNotExist
		}
		m.dirs[dir] = true
	}
	m.modes[path] = perm
	if existing, ok := m.files[path]; ok && existing == string(data) {
		return false, nil
	}
	m.files[path] = string(data)
	m.writes++
	return true, nil
}

const docDir = "/work"

func orgDoc(t *testing.T, lines ...string) *document.Document {
	t.Helper()
	return document.ParseOrg(filepath.Join(docDir, "notes.org"), strings.Join(lines, "\n")+"\n")
}

func renderOne(t *testing.T, doc *document.Document, s Settings) Target {
	t.Helper()
	res, err := Render(doc, s)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(res.Targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(res.Targets))
	}
	return res.Targets[0]
}

func TestCollectPreservesDocumentOrderAcrossHeadings(t *testing.T) {
	doc := orgDoc(t,
		"* foo",
		"#+begin_src sh :tangle out.sh",
		"1",
		"#+end_src",
		"* bar",
		"#+begin_src sh :tangle out.sh",
		"2",
		"#+end_src",
		"* foo",
		"#+begin_src sh :tangle out.sh",
		"3",
		"#+end_src",
		"* bar",
		"#+begin_src sh :tangle out.sh",
		"4",
		"#+end_src",
	)

	groups, err := Collect(doc, DefaultSettings())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(groups) != 1 || groups[0].Target != filepath.Join(docDir, "out.sh") {
		t.Fatalf("expected one group for out.sh, got %+v", groups)
	}

	type occurrence struct {
		Label string
		Index int
		Body  string
	}
	got := make([]occurrence, 0)
	for _, e := range groups[0].Entries {
		got = append(got, occurrence{e.Fragment.HeadingLabel(), e.Index, e.Fragment.Body})
	}
	want := []occurrence{{"foo", 1, "1"}, {"bar", 1, "2"}, {"foo", 2, "3"}, {"bar", 2, "4"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	if content := renderOne(t, doc, DefaultSettings()).Content; content != "1\n2\n3\n4\n" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestExcludedFragmentsNeverResolve(t *testing.T) {
	doc := orgDoc(t,
		"* COMMENT Old",
		"#+NAME: a",
		"#+begin_src sh",
		"hidden",
		"#+end_src",
		"* Wrapped",
		"#+begin_comment",
		"#+begin_src sh :tangle out.sh",
		"wrapped",
		"#+end_src",
		"#+end_comment",
		"# #+begin_src sh :tangle out.sh",
		"commented",
		"# #+end_src",
		"* New",
		"#+NAME: a",
		"#+begin_src sh",
		"shown",
		"#+end_src",
		"* Main",
		"#+begin_src sh :tangle out.sh :noweb yes",
		"<<a>>",
		"#+end_src",
	)

	if content := renderOne(t, doc, DefaultSettings()).Content; content != "shown\n" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestNowebExpansion(t *testing.T) {
	cases := []struct {
		name string
		body string
		mode string
		want string
	}{
		{"multiple markers expand left to right", "<<A>> <<B>> <<A>>", "yes", "1 2 1\n"},
		{"strip deletes markers", "1<<A>>", "strip", "1\n"},
		{"no leaves markers verbatim", "<<A>>", "no", "<<A>>\n"},
		{"tangle expands for tangling", "x <<B>>", "tangle", "x 2\n"},
		{"no-export still expands for tangling", "<<B>>", "no-export", "2\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := orgDoc(t,
				"#+NAME: A",
				"#+begin_src sh",
				"1",
				"#+end_src",
				"#+NAME: B",
				"#+begin_src sh",
				"2",
				"#+end_src",
				"#+begin_src sh :tangle out.sh :noweb "+tc.mode,
				tc.body,
				"#+end_src",
			)
			if got := renderOne(t, doc, DefaultSettings()).Content; got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNowebReappliesPrefixAndConcatenatesReferents(t *testing.T) {
	doc := orgDoc(t,
		"* Body",
		":PROPERTIES:",
		":header-args: :noweb-ref body",
		":END:",
		"#+begin_src python",
		"a = 1",
		"#+end_src",
		"#+begin_src python",
		"return a",
		"#+end_src",
		"* Main",
		"#+begin_src python :tangle out.py :noweb yes",
		"def f():",
		"    <<body>>",
		"#+end_src",
	)

	want := "def f():\n    a = 1\n    return a\n"
	if got := renderOne(t, doc, DefaultSettings()).Content; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestUnresolvedReferences(t *testing.T) {
	doc := orgDoc(t,
		"#+begin_src sh :tangle out.sh :noweb yes",
		"<<missing>>",
		"#+end_src",
	)

	res, err := Render(doc, DefaultSettings())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if res.Targets[0].Content != "<<missing>>\n" {
		t.Fatalf("expected the literal marker, got %q", res.Targets[0].Content)
	}
	if len(multierr.Errors(res.Warnings)) != 1 {
		t.Fatalf("expected one warning, got %v", res.Warnings)
	}

	s := DefaultSettings()
	s.Strict = true
	_, err = Render(doc, s)
	var refErr *ReferenceError
	if !errors.As(err, &refErr) || refErr.Name != "missing" {
		t.Fatalf("expected ReferenceError for missing, got %v", err)
	}
	if refErr.Target != "/work/out.sh" || !strings.Contains(err.Error(), "for target /work/out.sh") {
		t.Fatalf("expected the error to name the target, got %v", err)
	}
}

func TestInvalidOptionsNameTheirLayer(t *testing.T) {
	doc := orgDoc(t,
		"* Setup",
		":PROPERTIES:",
		":header-args: :comments fancy",
		":END:",
		"#+begin_src sh :tangle out.sh",
		"echo hi",
		"#+end_src",
	)
	_, err := Render(doc, DefaultSettings())
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Origin != `heading "Setup"` {
		t.Fatalf("expected a ConfigurationError from the heading, got %v", err)
	}
	if !strings.Contains(err.Error(), `(set by heading "Setup")`) {
		t.Fatalf("expected the message to name the layer, got %q", err.Error())
	}

	self := orgDoc(t,
		"#+PROPERTY: header-args :tangle notes.org",
		"#+begin_src sh",
		"echo hi",
		"#+end_src",
	)
	_, err = Render(self, DefaultSettings())
	if !errors.As(err, &cfgErr) || !errors.Is(err, ErrSelfTangle) || cfgErr.Origin != "document" {
		t.Fatalf("expected a self-tangle error from the document defaults, got %v", err)
	}
}

func TestCyclesAndDepthLimit(t *testing.T) {
	doc := orgDoc(t,
		"#+NAME: a",
		"#+begin_src sh :noweb yes",
		"<<b>>",
		"#+end_src",
		"#+NAME: b",
		"#+begin_src sh :noweb yes",
		"<<a>>",
		"#+end_src",
		"#+begin_src sh :tangle out.sh :noweb yes",
		"<<a>>",
		"#+end_src",
	)
	var refErr *ReferenceError
	if _, err := Render(doc, DefaultSettings()); !errors.As(err, &refErr) {
		t.Fatalf("expected ReferenceError for a cycle, got %v", err)
	}

	chain := orgDoc(t,
		"#+NAME: one",
		"#+begin_src sh :noweb yes",
		"<<two>>",
		"#+end_src",
		"#+NAME: two",
		"#+begin_src sh",
		"leaf",
		"#+end_src",
		"#+begin_src sh :tangle out.sh :noweb yes",
		"<<one>>",
		"#+end_src",
	)
	s := DefaultSettings()
	s.MaxDepth = 1
	if _, err := Render(chain, s); !errors.As(err, &refErr) {
		t.Fatalf("expected ReferenceError past the depth limit, got %v", err)
	}
	s.MaxDepth = 2
	if got := renderOne(t, chain, s).Content; got != "leaf\n" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestSelfTangleFailsWithoutWriting(t *testing.T) {
	doc := orgDoc(t,
		"* Fine",
		"#+begin_src sh :tangle ok.sh",
		"echo ok",
		"#+end_src",
		"* Broken",
		"#+begin_src org :tangle notes.org",
		"oops",
		"#+end_src",
	)
	fsys := newMemFS(docDir)

	_, err := Tangle(doc, DefaultSettings(), fsys)
	if !errors.Is(err, ErrSelfTangle) {
		t.Fatalf("expected ErrSelfTangle, got %v", err)
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Heading[0] != "Broken" {
		t.Fatalf("expected ConfigurationError naming the heading, got %v", err)
	}
	if fsys.writes != 0 {
		t.Fatalf("expected no writes, got %d", fsys.writes)
	}
}

func TestTargetResolution(t *testing.T) {
	doc := orgDoc(t,
		"#+begin_src bibtex :tangle yes",
		"@book{x}",
		"#+end_src",
		"#+begin_src elisp :tangle yes",
		"(x)",
		"#+end_src",
		"#+begin_src sh :tangle ~/bin/run.sh",
		"run",
		"#+end_src",
		"#+begin_src sh :tangle /abs/out.sh",
		"abs",
		"#+end_src",
		"#+begin_src sh :tangle sub/../rel.sh",
		"rel",
		"#+end_src",
		"#+begin_src sh :tangle no",
		"skipped",
		"#+end_src",
	)
	s := DefaultSettings()
	s.HomeDir = "/home/me"

	groups, err := Collect(doc, s)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	got := make([]string, 0, len(groups))
	for _, g := range groups {
		got = append(got, g.Target)
	}
	want := []string{
		"/work/notes.bib",
		"/work/notes.el",
		"/home/me/bin/run.sh",
		"/abs/out.sh",
		"/work/rel.sh",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}
}

func TestInheritedHeaderArgs(t *testing.T) {
	doc := orgDoc(t,
		"#+PROPERTY: header-args :comments none",
		"#+PROPERTY: header-args:python :tangle lib.py",
		"* Scripts",
		":PROPERTIES:",
		":header-args:sh: :tangle run.sh",
		":END:",
		"** Inner",
		"#+begin_src sh",
		"echo inner",
		"#+end_src",
		"#+begin_src python",
		"x = 1",
		"#+end_src",
		"#+begin_src sh :tangle other.sh",
		"echo other",
		"#+end_src",
	)

	groups, err := Collect(doc, DefaultSettings())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	got := map[string]int{}
	for _, g := range groups {
		got[filepath.Base(g.Target)] = len(g.Entries)
	}
	want := map[string]int{"run.sh": 1, "lib.py": 1, "other.sh": 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkComments(t *testing.T) {
	doc := orgDoc(t,
		"#+begin_src sh :tangle out/run.sh :comments link :mkdirp yes",
		"echo root",
		"#+end_src",
		"* Setup",
		"#+begin_src sh :tangle out/run.sh :comments link :mkdirp yes",
		"echo setup",
		"#+end_src",
	)

	want := strings.Join([]string{
		"# [[file:../notes.org][No heading:1]]",
		"echo root",
		"# No heading:1 ends here",
		"# [[file:../notes.org][Setup:1]]",
		"echo setup",
		"# Setup:1 ends here",
		"",
	}, "\n")
	if got := renderOne(t, doc, DefaultSettings()).Content; got != want {
		t.Fatalf("unexpected content:\n%s", got)
	}

	s := DefaultSettings()
	s.RelativeLinks = false
	if got := renderOne(t, doc, s).Content; !strings.HasPrefix(got, "# [[file:/work/notes.org][No heading:1]]") {
		t.Fatalf("expected absolute link, got:\n%s", got)
	}
}

func TestNowebComments(t *testing.T) {
	doc := orgDoc(t,
		"* Parts",
		"#+NAME: helper",
		"#+begin_src go",
		"func helper() {}",
		"#+end_src",
		"* Main",
		"#+begin_src go :tangle main.go :noweb yes :comments noweb",
		"package main",
		"\t<<helper>>",
		"#+end_src",
	)

	want := strings.Join([]string{
		"// [[file:notes.org][Main:1]]",
		"package main",
		"\t// [[file:notes.org::helper]]",
		"\tfunc helper() {}",
		"\t// helper ends here",
		"// Main:1 ends here",
		"",
	}, "\n")
	if got := renderOne(t, doc, DefaultSettings()).Content; got != want {
		t.Fatalf("unexpected content:\n%s", got)
	}
}

func TestOrgComments(t *testing.T) {
	doc := orgDoc(t,
		"* Greeting",
		"Say hello to everyone.",
		"#+begin_src sh :tangle out.sh :comments org",
		"echo hello",
		"#+end_src",
	)
	if got := renderOne(t, doc, DefaultSettings()).Content; got != "# Say hello to everyone.\necho hello\n" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestEscapedBodiesAreUnescaped(t *testing.T) {
	doc := orgDoc(t,
		"#+begin_src org :tangle inner.org",
		",* Heading",
		",,#+begin_src sh",
		"text",
		"#+end_src",
	)
	if got := renderOne(t, doc, DefaultSettings()).Content; got != "* Heading\n,#+begin_src sh\ntext\n" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestShebangModeAndMkdirp(t *testing.T) {
	doc := orgDoc(t,
		"#+begin_src sh :tangle bin/run :shebang #!/bin/sh",
		"echo run",
		"#+end_src",
	)

	fsys := newMemFS(docDir)
	res, err := Tangle(doc, DefaultSettings(), fsys)
	var emitErr *EmissionError
	if !errors.As(err, &emitErr) || emitErr.Target != "/work/bin/run" {
		t.Fatalf("expected EmissionError for missing directory, got %v", err)
	}
	if res == nil {
		t.Fatalf("expected rendered result alongside the emission error")
	}

	doc = orgDoc(t,
		"#+begin_src sh :tangle bin/run :shebang #!/bin/sh :mkdirp yes",
		"echo run",
		"#+end_src",
	)
	if _, err := Tangle(doc, DefaultSettings(), fsys); err != nil {
		t.Fatalf("Tangle failed: %v", err)
	}
	if fsys.files["/work/bin/run"] != "#!/bin/sh\necho run\n" {
		t.Fatalf("unexpected content %q", fsys.files["/work/bin/run"])
	}
	if fsys.modes["/work/bin/run"] != 0755 {
		t.Fatalf("expected 0755, got %v", fsys.modes["/work/bin/run"])
	}
}

func TestTangleIsIdempotent(t *testing.T) {
	doc := orgDoc(t,
		"* A",
		"#+begin_src sh :tangle out.sh :comments link",
		"echo a",
		"#+end_src",
	)
	fsys := newMemFS(docDir)

	first, err := Tangle(doc, DefaultSettings(), fsys)
	if err != nil {
		t.Fatalf("first Tangle failed: %v", err)
	}
	second, err := Tangle(doc, DefaultSettings(), fsys)
	if err != nil {
		t.Fatalf("second Tangle failed: %v", err)
	}
	if !first.Targets[0].Changed || second.Targets[0].Changed {
		t.Fatalf("expected only the first run to change the target")
	}
	if first.Targets[0].Content != second.Targets[0].Content || first.Targets[0].Hash != second.Targets[0].Hash {
		t.Fatalf("expected byte-identical output")
	}
}

func TestLanguageFilter(t *testing.T) {
	doc := orgDoc(t,
		"#+begin_src sh :tangle out.sh",
		"echo",
		"#+end_src",
		"#+begin_src python :tangle out.py",
		"print()",
		"#+end_src",
	)
	s := DefaultSettings()
	s.Languages = []string{"py"}
	groups, err := Collect(doc, s)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(groups) != 1 || filepath.Base(groups[0].Target) != "out.py" {
		t.Fatalf("expected only out.py, got %+v", groups)
	}
}

func TestSyntaxCheckWarnings(t *testing.T) {
	doc := orgDoc(t,
		"#+begin_src go :tangle main.go",
		"package main",
		"",
		"func main() {",
		"#+end_src",
	)
	s := DefaultSettings()
	s.Check = true
	res, err := Render(doc, s)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(res.Targets[0].Issues) == 0 || res.Warnings == nil {
		t.Fatalf("expected syntax issues to be reported")
	}
}

func TestLocateAndExpandReference(t *testing.T) {
	doc := orgDoc(t,
		"* A",
		"#+NAME: part",
		"#+begin_src sh",
		"echo part",
		"#+end_src",
		"#+begin_src sh :tangle out.sh",
		"first",
		"#+end_src",
		"#+begin_src sh :tangle out.sh :noweb yes",
		"<<part>>",
		"#+end_src",
	)
	p, err := NewPlan(doc, DefaultSettings())
	if err != nil {
		t.Fatalf("NewPlan failed: %v", err)
	}

	b, err := p.Locate("/work/out.sh", trace.Descriptor{Label: "A", Index: 2})
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if b.Fragment.Body != "<<part>>" {
		t.Fatalf("located the wrong block: %q", b.Fragment.Body)
	}
	if p.Reversible(b) {
		t.Fatalf("expected a link-less expansion to be irreversible")
	}

	var mismatch *DetangleMismatchError
	if _, err := p.Locate("/work/out.sh", trace.Descriptor{Label: "A", Index: 3}); !errors.As(err, &mismatch) {
		t.Fatalf("expected DetangleMismatchError, got %v", err)
	}

	exp, err := p.ExpandReference("part", options.ContextTangle)
	if err != nil || exp.Text != "echo part" {
		t.Fatalf("unexpected expansion %+v, err=%v", exp, err)
	}

	_, err = p.ExpandReference("prat", options.ContextTangle)
	var refErr *ReferenceError
	if !errors.As(err, &refErr) || !strings.Contains(refErr.Reason, "(known: part)") {
		t.Fatalf("expected the known names in the error, got %v", err)
	}
}
