package cli

import (
	"fmt"

	"github.com/morozRed/tangle/internal/config"
	"github.com/morozRed/tangle/internal/nav"
	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tangle",
		Short: "Extract source files from literate documents and fold edits back",
		Long: `Tangle reads Org and Markdown documents, collects their source fragments
into the files named by :tangle header arguments, expands noweb references,
and marks every generated region so edits can be detangled back into the
document or a position can be jumped to its origin.

Configuration is read from .tangle.yaml in the working directory.`,
		SilenceUsage:      true,
		PersistentPreRunE: PrepareEnv,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = config.EnvFromContext(cmd.Context()).Close()
		},
	}
	rootCmd.PersistentFlags().String("config", "", "Configuration file (default: ./"+config.FileName+" when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Override logging level: none|normal|debug")

	// Generate Commands
	tangleCmd := &cobra.Command{
		Use:   "tangle [path...]",
		Short: "Write the target files of documents (directories are walked)",
		RunE:  RunTangle,
	}
	tangleCmd.Flags().Bool("dry-run", false, "Render targets without writing them")
	tangleCmd.Flags().Bool("json", false, "Print machine-readable run summary")
	tangleCmd.Flags().Bool("print-written", false, "Print the paths of rewritten targets instead of a summary")
	tangleCmd.Flags().Bool("check", false, "Parse emitted targets with bundled grammars and report syntax errors")
	tangleCmd.Flags().Bool("strict", false, "Fail on unresolved noweb references")
	tangleCmd.Flags().Bool("absolute-links", false, "Write absolute document paths into link comments")
	tangleCmd.Flags().Int("max-depth", 0, "Maximum noweb expansion depth (default from configuration)")
	tangleCmd.Flags().StringSliceP("lang", "l", []string{}, "Only tangle fragments in these languages")

	// Inspect Commands
	collectCmd := &cobra.Command{
		Use:   "collect <document>",
		Short: "List target files and the fragments written to each",
		Args:  cobra.ExactArgs(1),
		RunE:  RunCollect,
	}
	collectCmd.Flags().Bool("json", false, "Print machine-readable groups")
	collectCmd.Flags().StringSliceP("lang", "l", []string{}, "Only list fragments in these languages")

	expandCmd := &cobra.Command{
		Use:   "expand <document> <name>",
		Short: "Print the expansion of a noweb reference",
		Args:  cobra.ExactArgs(2),
		RunE:  RunExpand,
	}
	expandCmd.Flags().String("context", "tangle", "Consumer context: tangle|export|eval")
	expandCmd.Flags().Bool("json", false, "Print machine-readable expansion")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show generated files edited or removed since they were tangled",
		RunE:  RunStatus,
	}
	statusCmd.Flags().Bool("json", false, "Print machine-readable status output")
	statusCmd.Flags().Bool("exit-code", false, "Fail when a generated file was edited since it was tangled")

	// Reverse Commands
	detangleCmd := &cobra.Command{
		Use:   "detangle <generated>",
		Short: "Copy edits in a generated file back into its document",
		Args:  cobra.ExactArgs(1),
		RunE:  RunDetangle,
	}
	detangleCmd.Flags().String("doc", "", "Document to update (default: recorded association, then link comments)")
	detangleCmd.Flags().Bool("dry-run", false, "Report changes without writing the document")
	detangleCmd.Flags().Bool("json", false, "Print machine-readable summary")

	jumpCmd := &cobra.Command{
		Use:   "jump <generated>:<line>[:<col>] | <generated> --offset N",
		Short: "Resolve a position in a generated file to its document position",
		Args:  cobra.ExactArgs(1),
		RunE:  nav.RunJump,
	}
	jumpCmd.Flags().Int("offset", -1, "Byte offset in the generated file instead of line:col")
	jumpCmd.Flags().String("doc", "", "Document to resolve into (default: recorded association, then link comments)")
	jumpCmd.Flags().Bool("json", false, "Print machine-readable position")

	// Additional Commands
	installHookCmd := &cobra.Command{
		Use:   "install-hook",
		Short: "Install git pre-commit hook that re-tangles and rejects drift",
		RunE:  RunInstallHook,
	}
	installHookCmd.Flags().Bool("uninstall", false, "Remove the tangle block from the pre-commit hook")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tangle %s\n", version)
		},
	}

	rootCmd.AddCommand(
		tangleCmd,
		collectCmd,
		expandCmd,
		statusCmd,
		detangleCmd,
		jumpCmd,
		installHookCmd,
		versionCmd,
	)

	return rootCmd
}

// PrepareEnv loads the configuration and logger for the invoked command and
// attaches them to its context.
func PrepareEnv(cmd *cobra.Command, args []string) error {
	path, err := OptionalStringFlag(cmd, "config")
	if err != nil {
		return err
	}
	required := path != ""
	if path == "" {
		path = config.FileName
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return err
	}

	level, err := OptionalStringFlag(cmd, "log-level")
	if err != nil {
		return err
	}
	switch level {
	case "":
	case "none", "normal", "debug":
		cfg.Logging.Level = level
	default:
		return fmt.Errorf("unsupported --log-level %q (supported: none, normal, debug)", level)
	}
	log, closeLog, err := cfg.Logging.Prepare()
	if err != nil {
		return fmt.Errorf("failed to prepare logger: %w", err)
	}

	cmd.SetContext(config.ContextWithEnv(cmd.Context(), &config.Env{Cfg: cfg, Log: log, CloseLog: closeLog}))
	return nil
}
