package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/morozRed/tangle/internal/document"
	"github.com/morozRed/tangle/internal/fileutil"
	"github.com/spf13/cobra"
)

const (
	HookStart = "# >>> tangle pre-commit hook >>>"
	HookEnd   = "# <<< tangle pre-commit hook <<<"
)

func RunInstallHook(cmd *cobra.Command, args []string) error {
	uninstall, err := OptionalBoolFlag(cmd, "uninstall")
	if err != nil {
		return err
	}
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	repoRoot, hooksDir, err := ResolveGitPaths(rootPath)
	if err != nil {
		return err
	}
	hookPath := filepath.Join(hooksDir, "pre-commit")

	existing := ""
	if data, err := os.ReadFile(hookPath); err == nil {
		existing = string(data)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read existing hook: %w", err)
	}

	if uninstall {
		if existing == "" {
			fmt.Printf("No pre-commit hook at %s\n", hookPath)
			return nil
		}
		if _, err := fileutil.WriteIfChangedTracked(hookPath, []byte(RemoveTangleHook(existing)), 0755, false); err != nil {
			return fmt.Errorf("failed to write hook: %w", err)
		}
		fmt.Printf("Removed tangle block from %s\n", hookPath)
		return nil
	}

	updated := UpsertTangleHook(existing, repoRoot)
	if _, err := fileutil.WriteIfChangedTracked(hookPath, []byte(updated), 0755, true); err != nil {
		return fmt.Errorf("failed to write hook: %w", err)
	}
	fmt.Printf("Installed pre-commit hook at %s\n", hookPath)
	return nil
}

// ResolveGitPaths returns the work tree root and the hooks directory shared
// by every worktree of the repository.
func ResolveGitPaths(workingDir string) (repoRoot string, hooksDir string, err error) {
	out, err := exec.Command("git", "-C", workingDir, "rev-parse", "--show-toplevel", "--git-common-dir").Output()
	if err != nil {
		return "", "", fmt.Errorf("not inside a git repository")
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		return "", "", fmt.Errorf("unexpected git rev-parse output %q", out)
	}

	repoRoot = strings.TrimSpace(lines[0])
	commonDir := strings.TrimSpace(lines[1])
	if !filepath.IsAbs(commonDir) {
		commonDir = filepath.Join(workingDir, commonDir)
	}
	return repoRoot, filepath.Join(commonDir, "hooks"), nil
}

func UpsertTangleHook(existingHook, repoRoot string) string {
	block := BuildTangleHookBlock(repoRoot)

	if existingHook == "" {
		return "#!/bin/sh\n\n" + block + "\n"
	}
	if start, end, ok := hookBlockBounds(existingHook); ok {
		return fileutil.EnsureTrailingNewline(existingHook[:start] + block + existingHook[end:])
	}

	base := fileutil.EnsureTrailingNewline(existingHook)
	if !strings.HasPrefix(base, "#!") {
		base = "#!/bin/sh\n" + base
	}
	return base + "\n" + block + "\n"
}

// RemoveTangleHook drops the tangle block and the blank line before it,
// leaving the rest of the hook untouched.
func RemoveTangleHook(existingHook string) string {
	start, end, ok := hookBlockBounds(existingHook)
	if !ok {
		return existingHook
	}
	before := strings.TrimSuffix(existingHook[:start], "\n")
	after := strings.TrimPrefix(existingHook[end:], "\n")
	return fileutil.EnsureTrailingNewline(before) + after
}

func hookBlockBounds(hook string) (int, int, bool) {
	start := strings.Index(hook, HookStart)
	end := strings.Index(hook, HookEnd)
	if start < 0 || end < start {
		return 0, 0, false
	}
	return start, end + len(HookEnd), true
}

// BuildTangleHookBlock refuses commits while a generated file holds edits
// that were never detangled, then re-tangles the staged documents and stages
// the targets they rewrote.
func BuildTangleHookBlock(repoRoot string) string {
	patterns := make([]string, 0, len(document.Extensions))
	for _, ext := range document.Extensions {
		patterns = append(patterns, "'*"+ext+"'")
	}

	lines := []string{
		HookStart,
		fmt.Sprintf("repo_root=%q", repoRoot),
		"if command -v tangle >/dev/null 2>&1; then",
		"  (",
		"    cd \"$repo_root\" || exit 1",
		"    if ! tangle status --exit-code --log-level none >/dev/null; then",
		"      echo \"tangle: generated files were edited; run 'tangle detangle <file>' first\" >&2",
		"      exit 1",
		"    fi",
		"    docs=$(git diff --cached --name-only --diff-filter=ACMR -- " + strings.Join(patterns, " ") + ")",
		"    [ -z \"$docs\" ] && exit 0",
		"    written=$(echo \"$docs\" | xargs tangle tangle --print-written --log-level none) || exit 1",
		"    [ -z \"$written\" ] || echo \"$written\" | xargs git add --",
		"  ) || exit 1",
		"fi",
		HookEnd,
	}
	return strings.Join(lines, "\n")
}
