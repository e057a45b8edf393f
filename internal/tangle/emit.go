package tangle

import (
	"io/fs"
	"os"

	"github.com/morozRed/tangle/internal/fileutil"
)

// FileSystem is where tangled targets are read from and written to.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	// WriteFile replaces path with data and reports whether the content
	// changed. Missing parent directories are created only when mkdirp is
	// set.
	WriteFile(path string, data []byte, perm fs.FileMode, mkdirp bool) (bool, error)
}

// OSFileSystem writes through the local disk with atomic replacement.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (OSFileSystem) WriteFile(path string, data []byte, perm fs.FileMode, mkdirp bool) (bool, error) {
	return fileutil.WriteIfChangedTracked(path, data, perm, mkdirp)
}
