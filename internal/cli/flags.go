package cli

import (
	"fmt"
	"strings"

	"github.com/morozRed/tangle/internal/fileutil"
	"github.com/morozRed/tangle/internal/options"
	"github.com/morozRed/tangle/internal/tangle"
	"github.com/spf13/cobra"
)

func OptionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return false, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

// ParseLanguageFilter returns the normalized --lang values. Names are not
// checked against the language table: fragments may use languages it does
// not know.
func ParseLanguageFilter(cmd *cobra.Command) ([]string, error) {
	if cmd == nil || cmd.Flags().Lookup("lang") == nil {
		return nil, nil
	}
	langs, err := cmd.Flags().GetStringSlice("lang")
	if err != nil {
		return nil, fmt.Errorf("failed to read --lang flag: %w", err)
	}
	filter := make([]string, 0, len(langs))
	for _, lang := range langs {
		key := strings.ToLower(strings.TrimSpace(lang))
		if key == "" {
			return nil, fmt.Errorf("empty language in --lang")
		}
		filter = append(filter, key)
	}
	if len(filter) == 0 {
		return nil, nil
	}
	return fileutil.DedupeStrings(filter), nil
}

func ParseContext(cmd *cobra.Command) (options.Context, error) {
	value, err := OptionalStringFlag(cmd, "context")
	if err != nil {
		return options.ContextTangle, err
	}
	switch strings.ToLower(value) {
	case "", "tangle":
		return options.ContextTangle, nil
	case "export":
		return options.ContextExport, nil
	case "eval":
		return options.ContextEval, nil
	default:
		return options.ContextTangle, fmt.Errorf("unsupported context %q (supported: tangle, export, eval)", value)
	}
}

// ApplySettingFlags layers the tangle command's overrides on top of the
// configured settings.
func ApplySettingFlags(cmd *cobra.Command, s tangle.Settings) (tangle.Settings, error) {
	check, err := OptionalBoolFlag(cmd, "check")
	if err != nil {
		return s, err
	}
	strict, err := OptionalBoolFlag(cmd, "strict")
	if err != nil {
		return s, err
	}
	absolute, err := OptionalBoolFlag(cmd, "absolute-links")
	if err != nil {
		return s, err
	}
	langs, err := ParseLanguageFilter(cmd)
	if err != nil {
		return s, err
	}

	s.Check = s.Check || check
	s.Strict = s.Strict || strict
	if absolute {
		s.RelativeLinks = false
	}
	if len(langs) > 0 {
		s.Languages = langs
	}

	if cmd != nil && cmd.Flags().Lookup("max-depth") != nil {
		depth, err := cmd.Flags().GetInt("max-depth")
		if err != nil {
			return s, fmt.Errorf("failed to read --max-depth flag: %w", err)
		}
		if depth < 0 {
			return s, fmt.Errorf("--max-depth must not be negative, got %d", depth)
		}
		if depth > 0 {
			s.MaxDepth = depth
		}
	}
	return s, nil
}
