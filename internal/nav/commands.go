package nav

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/morozRed/tangle/internal/config"
	"github.com/morozRed/tangle/internal/document"
	"github.com/morozRed/tangle/internal/fileutil"
	"github.com/morozRed/tangle/internal/state"
	"github.com/morozRed/tangle/internal/tangle"
	"github.com/morozRed/tangle/internal/trace"
	"github.com/spf13/cobra"
)

// RunJump resolves "<generated>:<line>[:<col>]" or "<generated> --offset N"
// to a position in the source document.
func RunJump(cmd *cobra.Command, args []string) error {
	env := config.EnvFromContext(cmd.Context())
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	offset, err := OptionalIntFlag(cmd, "offset", -1)
	if err != nil {
		return err
	}
	docFlag, err := OptionalStringFlag(cmd, "doc")
	if err != nil {
		return err
	}

	target := args[0]
	line, col := 0, 0
	if offset < 0 {
		file, l, c, ok := ParseLocationQuery(args[0])
		if !ok {
			return fmt.Errorf("expected <file>:<line>[:<col>] or --offset, got %q", args[0])
		}
		target, line, col = file, l, c
	}
	target, err = filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", target, err)
	}
	if offset < 0 {
		offset = OffsetForLine(string(data), line, col)
	}

	docPath, recorded, err := ResolveDocument(env, target, string(data), docFlag)
	if err != nil {
		return err
	}
	doc, err := document.Load(docPath)
	if err != nil {
		return err
	}

	pos, err := Jump(doc, target, offset, Options{Settings: env.Settings(), Recorded: recorded}, tangle.OSFileSystem{})
	if err != nil {
		return err
	}
	if asJSON {
		return fileutil.PrintJSON(pos)
	}
	fmt.Printf("%s:%d:%d\n", pos.Document, pos.Line, pos.Column)
	return nil
}

// ResolveDocument picks the document a generated file is detangled into:
// the explicit path, then the association recorded in state, then the first
// link marker of the file. The second result is the recorded association.
func ResolveDocument(env *config.Env, target, content, explicit string) (string, string, error) {
	recorded := ""
	stateDir := env.Cfg.StateDir
	if root, err := os.Getwd(); err == nil && !filepath.IsAbs(stateDir) {
		stateDir = filepath.Join(root, stateDir)
	}
	if st, err := state.Load(stateDir); err == nil {
		if record, ok := st.Target(target); ok {
			recorded = record.Document
		}
	}

	switch {
	case explicit != "":
		abs, err := filepath.Abs(explicit)
		return abs, recorded, err
	case recorded != "":
		return recorded, recorded, nil
	}

	generated := trace.Parse(content)
	if len(generated.Segments) == 0 {
		return "", "", fmt.Errorf("%s has no trace markers; pass --doc", target)
	}
	ref := filepath.FromSlash(generated.Segments[0].DocRef)
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(filepath.Dir(target), ref)
	}
	return filepath.Clean(ref), recorded, nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string, defaultValue bool) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return defaultValue, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func OptionalIntFlag(cmd *cobra.Command, name string, defaultValue int) (int, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return defaultValue, nil
	}
	value, err := cmd.Flags().GetInt(name)
	if err != nil {
		return 0, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func OptionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}
