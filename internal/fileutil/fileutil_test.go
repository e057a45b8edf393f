package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteIfChangedTracked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.sh")

	changed, err := WriteIfChangedTracked(path, []byte("echo 1\n"), 0644, false)
	if err != nil || !changed {
		t.Fatalf("expected first write to change the file, changed=%v err=%v", changed, err)
	}

	changed, err = WriteIfChangedTracked(path, []byte("echo 1\n"), 0755, false)
	if err != nil || changed {
		t.Fatalf("expected identical content to be left alone, changed=%v err=%v", changed, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Fatalf("expected mode to be applied to unchanged content, got %o", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no temporary files left behind, got %d entries", len(entries))
	}
}

func TestWriteIfChangedTrackedMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "out.txt")

	if _, err := WriteIfChangedTracked(path, []byte("x"), 0644, false); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected a missing directory error, got %v", err)
	}
	if _, err := WriteIfChangedTracked(path, []byte("x"), 0644, true); err != nil {
		t.Fatalf("expected mkdirp to create the directory: %v", err)
	}
	if data, err := os.ReadFile(path); err != nil || string(data) != "x" {
		t.Fatalf("unexpected content %q (%v)", data, err)
	}
}

func TestHashFileMatchesHashBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("hello\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if want := HashBytes([]byte("hello\n")); got != want || len(got) != 16 {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestScanFilesSkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"a.org", "notes/b.md", "notes/c.txt", ".tangle/state.json", "node_modules/x.org", "private/d.org"} {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	keep := func(path string) bool {
		ext := filepath.Ext(path)
		return ext == ".org" || ext == ".md"
	}
	files, err := ScanFiles(root, []string{"private/"}, keep)
	if err != nil {
		t.Fatalf("ScanFiles failed: %v", err)
	}
	want := []string{filepath.Join(root, "a.org"), filepath.Join(root, "notes", "b.md")}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandHomeAndSamePath(t *testing.T) {
	got, err := ExpandHome("~/bin/tool.sh", "/home/me")
	if err != nil || got != "/home/me/bin/tool.sh" {
		t.Fatalf("unexpected expansion %q (%v)", got, err)
	}
	if got, _ := ExpandHome("rel/~/x", "/home/me"); got != "rel/~/x" {
		t.Fatalf("expected non-leading tilde to be kept, got %q", got)
	}
	if !SamePath("/a/b/../c", "/a/c") || SamePath("/a/c", "") {
		t.Fatalf("unexpected SamePath result")
	}
}
