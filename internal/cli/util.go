package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/morozRed/tangle/internal/document"
	"github.com/morozRed/tangle/internal/fileutil"
	"github.com/morozRed/tangle/internal/ignore"
)

func resolveWorkingDirectory() (string, error) {
	rootPath, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return rootPath, nil
}

// ResolveDocuments expands the tangle arguments into absolute document
// paths. Files are taken as given; directories are walked for .org and
// Markdown files, honoring the directory's .tangleignore.
func ResolveDocuments(rootPath string, args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{rootPath}
	}

	docs := make([]string, 0)
	for _, arg := range args {
		path := arg
		if !filepath.IsAbs(path) {
			path = filepath.Join(rootPath, path)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access path %q: %w", arg, err)
		}
		if !info.IsDir() {
			docs = append(docs, filepath.Clean(path))
			continue
		}

		rules, err := ignore.LoadRules(path)
		if err != nil {
			return nil, err
		}
		found, err := fileutil.ScanFiles(path, rules, document.IsDocument)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", arg, err)
		}
		docs = append(docs, found...)
	}
	return fileutil.DedupeStrings(docs), nil
}
