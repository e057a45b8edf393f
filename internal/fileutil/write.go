package fileutil

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// WriteIfChangedTracked replaces path with data through a temporary file in
// the same directory. Unchanged content is not rewritten, though the
// permission bits are still applied. Missing parent directories are created
// only when mkdirp is set.
func WriteIfChangedTracked(path string, data []byte, perm fs.FileMode, mkdirp bool) (bool, error) {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to inspect %s: %w", dir, err)
		}
		if !mkdirp {
			return false, fmt.Errorf("directory %s does not exist: %w", dir, fs.ErrNotExist)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, err
		}
	}

	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		if info, statErr := os.Stat(path); statErr == nil && info.Mode().Perm() != perm.Perm() {
			if err := os.Chmod(path, perm.Perm()); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return false, err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Chmod(tmpName, perm.Perm()); err != nil {
		return false, err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return false, err
	}
	return true, nil
}

func EnsureTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
