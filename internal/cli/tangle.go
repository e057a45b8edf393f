package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/morozRed/tangle/internal/config"
	"github.com/morozRed/tangle/internal/document"
	"github.com/morozRed/tangle/internal/fileutil"
	"github.com/morozRed/tangle/internal/state"
	"github.com/morozRed/tangle/internal/tangle"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func RunTangle(cmd *cobra.Command, args []string) error {
	start := time.Now()
	env := config.EnvFromContext(cmd.Context())
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	dryRun, err := OptionalBoolFlag(cmd, "dry-run")
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}
	printWritten, err := OptionalBoolFlag(cmd, "print-written")
	if err != nil {
		return err
	}
	settings, err := ApplySettingFlags(cmd, env.Settings())
	if err != nil {
		return err
	}

	docs, err := ResolveDocuments(rootPath, args)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		env.Log.Info("no documents found", zap.String("root", rootPath))
	}

	st, stateDir, err := LoadState(rootPath, env.Cfg.StateDir, env.Log)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	summary := RunSummary{Mode: "tangle", RootPath: rootPath, DryRun: dryRun, Results: make([]tangle.Result, 0, len(docs))}
	progress := newTangleProgress(rootPath, len(docs), asJSON || printWritten)
	var failures error
	for _, path := range docs {
		res, err := TangleDocument(path, settings, dryRun)
		progress.Document(path, res, err)
		if err != nil {
			env.Log.Error("tangle failed", zap.String("document", path), zap.Error(err))
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", path, err))
			continue
		}
		summary.Documents++
		summary.Warnings = append(summary.Warnings, WarningMessages(res.Warnings)...)
		for _, t := range res.Targets {
			summary.Targets++
			summary.Fragments += t.Fragments
			if t.Changed {
				summary.Written++
			} else {
				summary.Unchanged++
			}
		}
		if !dryRun {
			summary.Stale = append(summary.Stale, RecordResult(st, res)...)
		}
		summary.Results = append(summary.Results, *res)
	}
	progress.Done()

	if !dryRun && summary.Documents > 0 {
		if err := st.Save(stateDir); err != nil {
			return fmt.Errorf("failed to save state: %w", err)
		}
	}
	summary.DurationMS = time.Since(start).Milliseconds()
	if printWritten {
		for _, res := range summary.Results {
			for _, t := range res.Targets {
				if t.Changed {
					fmt.Println(t.Path)
				}
			}
		}
		return failures
	}
	if err := PrintRunSummary(summary, asJSON); err != nil {
		return err
	}
	return failures
}

// TangleDocument tangles the document at path. With dryRun set the targets
// are rendered and compared with the files on disk but not written.
func TangleDocument(path string, settings tangle.Settings, dryRun bool) (*tangle.Result, error) {
	doc, err := document.Load(path)
	if err != nil {
		return nil, err
	}
	if !dryRun {
		return tangle.Tangle(doc, settings, tangle.OSFileSystem{})
	}

	res, err := tangle.Render(doc, settings)
	if err != nil {
		return nil, err
	}
	for i := range res.Targets {
		t := &res.Targets[i]
		existing, err := os.ReadFile(t.Path)
		t.Changed = err != nil || string(existing) != t.Content
	}
	return res, nil
}

// RecordResult stores the target associations of a tangled document and
// returns the targets it produced last time but no longer does.
func RecordResult(st *state.State, res *tangle.Result) []string {
	paths := make([]string, 0, len(res.Targets))
	for _, t := range res.Targets {
		st.RecordTarget(t.Path, res.Document, t.Hash, t.Fragments)
		paths = append(paths, t.Path)
	}
	stale := st.StaleTargets(res.Document, paths)
	for _, path := range stale {
		if ts, ok := st.Target(path); ok && ts.Document == res.Document {
			st.RemoveTarget(path)
		}
	}

	hash := ""
	if data, err := os.ReadFile(res.Document); err == nil {
		hash = fileutil.HashBytes(data)
	}
	st.SetDocument(res.Document, hash, paths)
	return stale
}
