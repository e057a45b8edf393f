package cli

import (
	"fmt"
	"time"

	"github.com/morozRed/tangle/internal/config"
	"github.com/morozRed/tangle/internal/fileutil"
	"github.com/spf13/cobra"
)

func RunStatus(cmd *cobra.Command, args []string) error {
	start := time.Now()
	env := config.EnvFromContext(cmd.Context())
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}

	st, stateDir, err := LoadState(rootPath, env.Cfg.StateDir, env.Log)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	drifted, err := st.DriftedTargets(fileutil.HashFile)
	if err != nil {
		return fmt.Errorf("failed to hash generated files: %w", err)
	}

	current := make(map[string]string, len(st.Documents))
	for path := range st.Documents {
		hash, err := fileutil.HashFile(path)
		if err != nil {
			// removed documents count as changed
			hash = ""
		}
		current[path] = hash
	}
	changed := st.ChangedDocuments(current)

	summary := StatusSummary{
		Mode:       "status",
		RootPath:   rootPath,
		StateDir:   stateDir,
		Tracked:    len(st.Targets),
		Clean:      len(drifted) == 0 && len(changed) == 0,
		Drifted:    drifted,
		Changed:    changed,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err := PrintStatusSummary(summary, asJSON); err != nil {
		return err
	}
	exitCode, err := OptionalBoolFlag(cmd, "exit-code")
	if err != nil {
		return err
	}
	edited := 0
	for _, d := range drifted {
		if !d.Missing {
			edited++
		}
	}
	if exitCode && edited > 0 {
		return fmt.Errorf("%d generated files differ from their last tangle; detangle them first", edited)
	}
	return nil
}
