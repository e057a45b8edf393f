package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/morozRed/tangle/internal/config"
	"github.com/morozRed/tangle/internal/detangle"
	"github.com/morozRed/tangle/internal/document"
	"github.com/morozRed/tangle/internal/fileutil"
	"github.com/morozRed/tangle/internal/nav"
	"github.com/morozRed/tangle/internal/tangle"
	"github.com/spf13/cobra"
)

func RunDetangle(cmd *cobra.Command, args []string) error {
	env := config.EnvFromContext(cmd.Context())
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}
	dryRun, err := OptionalBoolFlag(cmd, "dry-run")
	if err != nil {
		return err
	}
	docFlag, err := OptionalStringFlag(cmd, "doc")
	if err != nil {
		return err
	}

	target, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", target, err)
	}
	docPath, recorded, err := nav.ResolveDocument(env, target, string(data), docFlag)
	if err != nil {
		return err
	}
	doc, err := document.Load(docPath)
	if err != nil {
		return err
	}

	res, err := detangle.Detangle(doc, target, detangle.Options{
		Settings: env.Settings(),
		Recorded: recorded,
		DryRun:   dryRun,
	}, tangle.OSFileSystem{})
	if err != nil {
		return err
	}

	if !dryRun {
		// the target now matches the document again
		st, stateDir, err := LoadState(rootPath, env.Cfg.StateDir, env.Log)
		if err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
		if ts, ok := st.Target(target); ok {
			st.RecordTarget(target, ts.Document, fileutil.HashBytes(data), ts.Fragments)
			if err := st.Save(stateDir); err != nil {
				return fmt.Errorf("failed to save state: %w", err)
			}
		}
	}

	return PrintDetangleSummary(DetangleSummary{
		Result:   res,
		DryRun:   dryRun,
		Warnings: WarningMessages(res.Warnings),
	}, asJSON)
}
