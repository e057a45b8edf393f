package nav

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/morozRed/tangle/internal/document"
	"github.com/morozRed/tangle/internal/tangle"
)

type memFS map[string]string

func (m memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(data), nil
}

func (m memFS) WriteFile(path string, data []byte, _ fs.FileMode, _ bool) (bool, error) {
	changed := m[path] != string(data)
	m[path] = string(data)
	return changed, nil
}

const docPath = "/work/notes.org"

func tangled(t *testing.T, text string) (memFS, *document.Document) {
	t.Helper()
	fsys := memFS{docPath: text}
	doc := document.ParseOrg(docPath, text)
	if _, err := tangle.Tangle(doc, tangle.DefaultSettings(), fsys); err != nil {
		t.Fatalf("Tangle failed: %v", err)
	}
	return fsys, doc
}

// markerLine reports whether the generated line holding offset is a trace
// marker.
func markerLine(text string, offset int) bool {
	start := strings.LastIndexByte(text[:offset], '\n') + 1
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		end = len(text) - offset
	}
	line := text[start : offset+end]
	return strings.Contains(line, "[[file:") || strings.HasSuffix(line, "ends here")
}

func TestJumpMapsEveryBodyCharacter(t *testing.T) {
	text := strings.Join([]string{
		"#+begin_src org :tangle out.org :comments link",
		"first line",
		",* escaped heading",
		"#+end_src",
		"* Section",
		"#+begin_src org :tangle out.org :comments link",
		"alpha",
		"",
		"  beta",
		"#+end_src",
		"** Deeper",
		"#+begin_src org :tangle out.org :comments link",
		"gamma",
		"#+end_src",
	}, "\n") + "\n"
	fsys, doc := tangled(t, text)
	generated := fsys["/work/out.org"]

	checked := 0
	for offset := 0; offset < len(generated); offset++ {
		if generated[offset] == '\n' || markerLine(generated, offset) {
			continue
		}
		pos, err := Jump(doc, "/work/out.org", offset, Options{Settings: tangle.DefaultSettings()}, fsys)
		if err != nil {
			t.Fatalf("Jump(%d) failed: %v", offset, err)
		}
		if got, want := doc.Text[pos.Offset], generated[offset]; got != want {
			t.Fatalf("offset %d: expected %q at document offset %d, got %q", offset, want, pos.Offset, got)
		}
		checked++
	}
	if checked == 0 {
		t.Fatalf("expected body characters to check")
	}
}

func TestJumpFirstFragmentAndMarkers(t *testing.T) {
	text := "#+begin_src sh :tangle out.sh :comments link\necho hi\n#+end_src\n"
	fsys, doc := tangled(t, text)
	generated := fsys["/work/out.sh"]

	pos, err := Jump(doc, "/work/out.sh", strings.Index(generated, "hi"), Options{Settings: tangle.DefaultSettings()}, fsys)
	if err != nil {
		t.Fatalf("Jump failed: %v", err)
	}
	if pos.Line != 2 || pos.Column != 6 || len(pos.Heading) != 0 || pos.Segment.Label != "" {
		t.Fatalf("unexpected position %+v", pos)
	}

	pos, err = Jump(doc, "/work/out.sh", 0, Options{Settings: tangle.DefaultSettings()}, fsys)
	if err != nil {
		t.Fatalf("Jump on begin marker failed: %v", err)
	}
	if pos.Offset != strings.Index(text, "echo") {
		t.Fatalf("expected begin marker to clamp to body start, got %d", pos.Offset)
	}

	end := strings.Index(generated, "# No heading:1 ends here")
	pos, err = Jump(doc, "/work/out.sh", end, Options{Settings: tangle.DefaultSettings()}, fsys)
	if err != nil {
		t.Fatalf("Jump on end marker failed: %v", err)
	}
	if pos.Offset != strings.Index(text, "\n#+end_src") {
		t.Fatalf("expected end marker to clamp to body end, got %d", pos.Offset)
	}
}

func TestJumpIntoNowebReferent(t *testing.T) {
	text := strings.Join([]string{
		"* Parts",
		"#+NAME: helper",
		"#+begin_src python",
		"def helper():",
		"    return 1",
		"#+end_src",
		"* Main",
		"#+begin_src python :tangle main.py :noweb yes :comments noweb",
		"class A:",
		"    <<helper>>",
		"#+end_src",
	}, "\n") + "\n"
	fsys, doc := tangled(t, text)
	generated := fsys["/work/main.py"]

	offset := strings.Index(generated, "return 1")
	pos, err := Jump(doc, "/work/main.py", offset, Options{Settings: tangle.DefaultSettings()}, fsys)
	if err != nil {
		t.Fatalf("Jump failed: %v", err)
	}
	if pos.Reference != "helper" || pos.Offset != strings.Index(text, "return 1") {
		t.Fatalf("unexpected position %+v", pos)
	}
	if pos.Heading[0] != "Parts" {
		t.Fatalf("expected the referent heading, got %v", pos.Heading)
	}
}

func TestJumpOutsideSegments(t *testing.T) {
	fsys := memFS{"/work/plain.sh": "echo untraced\n"}
	doc := document.ParseOrg(docPath, "")
	if _, err := Jump(doc, "/work/plain.sh", 2, Options{}, fsys); err == nil {
		t.Fatalf("expected an error for untraced content")
	}
}

func TestParseLocationQuery(t *testing.T) {
	cases := []struct {
		query     string
		file      string
		line, col int
		ok        bool
	}{
		{"out.sh:3", "out.sh", 3, 1, true},
		{"out.sh:3:7", "out.sh", 3, 7, true},
		{"out.sh", "", 0, 0, false},
		{"out.sh:x", "", 0, 0, false},
	}
	for _, tc := range cases {
		file, line, col, ok := ParseLocationQuery(tc.query)
		if file != tc.file || line != tc.line || col != tc.col || ok != tc.ok {
			t.Fatalf("ParseLocationQuery(%q) = %q %d %d %v", tc.query, file, line, col, ok)
		}
	}

	if got := OffsetForLine("ab\ncd\n", 2, 2); got != 4 {
		t.Fatalf("expected offset 4, got %d", got)
	}
	if got := OffsetForLine("ab\ncd\n", 2, 99); got != 5 {
		t.Fatalf("expected clamped offset 5, got %d", got)
	}
}

func TestJumpIntoNestedMarkdownFence(t *testing.T) {
	const mdPath = "/work/steps.md"
	text := "# Steps\n\n" +
		"- step one:\n\n" +
		"   ```python :tangle a.py :comments link\n" +
		"   def f():\n" +
		"       return 1\n" +
		"   ```\n"
	fsys := memFS{mdPath: text}
	doc, err := document.ParseMarkdown(mdPath, text)
	if err != nil {
		t.Fatalf("ParseMarkdown failed: %v", err)
	}
	if _, err := tangle.Tangle(doc, tangle.DefaultSettings(), fsys); err != nil {
		t.Fatalf("Tangle failed: %v", err)
	}
	generated := fsys["/work/a.py"]
	if !strings.Contains(generated, "\ndef f():\n    return 1\n") {
		t.Fatalf("expected list indentation to be dropped, got:\n%s", generated)
	}

	offset := strings.Index(generated, "return")
	pos, err := Jump(doc, "/work/a.py", offset, Options{Settings: tangle.DefaultSettings()}, fsys)
	if err != nil {
		t.Fatalf("Jump failed: %v", err)
	}
	if want := strings.Index(text, "return"); pos.Offset != want {
		t.Fatalf("expected document offset %d, got %d", want, pos.Offset)
	}
}
