package cli

import (
	"fmt"
	"strings"

	"github.com/morozRed/tangle/internal/detangle"
	"github.com/morozRed/tangle/internal/fileutil"
	"github.com/morozRed/tangle/internal/state"
	"github.com/morozRed/tangle/internal/tangle"
)

type RunSummary struct {
	Mode       string          `json:"mode"`
	RootPath   string          `json:"root_path"`
	DryRun     bool            `json:"dry_run,omitempty"`
	Documents  int             `json:"documents"`
	Targets    int             `json:"targets"`
	Written    int             `json:"written"`
	Unchanged  int             `json:"unchanged"`
	Fragments  int             `json:"fragments"`
	Warnings   []string        `json:"warnings,omitempty"`
	Stale      []string        `json:"stale,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	Results    []tangle.Result `json:"results,omitempty"`
}

type DetangleSummary struct {
	*detangle.Result
	DryRun   bool     `json:"dry_run,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type StatusSummary struct {
	Mode       string        `json:"mode"`
	RootPath   string        `json:"root_path"`
	StateDir   string        `json:"state_dir"`
	Tracked    int           `json:"tracked"`
	Clean      bool          `json:"clean"`
	Drifted    []state.Drift `json:"drifted,omitempty"`
	Changed    []string      `json:"changed_documents,omitempty"`
	DurationMS int64         `json:"duration_ms"`
}

func PrintRunSummary(summary RunSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(summary)
	}

	mode := summary.Mode
	if summary.DryRun {
		mode += " (dry-run)"
	}
	fmt.Printf(
		"%s: documents=%d targets=%d written=%d unchanged=%d fragments=%d warnings=%d duration=%dms\n",
		mode,
		summary.Documents,
		summary.Targets,
		summary.Written,
		summary.Unchanged,
		summary.Fragments,
		len(summary.Warnings),
		summary.DurationMS,
	)

	written := make([]string, 0)
	for _, res := range summary.Results {
		for _, t := range res.Targets {
			if t.Changed {
				written = append(written, t.Path)
			}
		}
	}
	if len(written) > 0 {
		verb := "written"
		if summary.DryRun {
			verb = "would write"
		}
		fmt.Printf("%s (%d): %s\n", verb, len(written), SummarizePaths(written, 8))
	}
	if len(summary.Stale) > 0 {
		fmt.Printf("no longer produced (%d): %s\n", len(summary.Stale), SummarizePaths(summary.Stale, 8))
	}
	return nil
}

func PrintDetangleSummary(summary DetangleSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(summary)
	}

	mode := "detangle"
	if summary.DryRun {
		mode = "detangle (dry-run)"
	}
	fmt.Printf("%s: %s -> %s applied=%d warnings=%d\n", mode, summary.Target, summary.Document, summary.Applied, len(summary.Warnings))
	for _, c := range summary.Changes {
		where := strings.Join(c.Heading, " / ")
		if where == "" {
			where = "(no heading)"
		}
		if c.Reference != "" {
			fmt.Printf("  %s:%d <<%s>> in %s\n", summary.Document, c.Line, c.Reference, where)
			continue
		}
		fmt.Printf("  %s:%d %s in %s\n", summary.Document, c.Line, c.Descriptor, where)
	}
	return nil
}

func PrintStatusSummary(summary StatusSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(summary)
	}

	fmt.Printf("status: tracked=%d drifted=%d changed_documents=%d duration=%dms\n",
		summary.Tracked, len(summary.Drifted), len(summary.Changed), summary.DurationMS)
	for _, d := range summary.Drifted {
		if d.Missing {
			fmt.Printf("  missing  %s (from %s)\n", d.Path, d.Document)
			continue
		}
		fmt.Printf("  modified %s (from %s)\n", d.Path, d.Document)
	}
	if len(summary.Changed) > 0 {
		fmt.Printf("documents edited since last tangle (%d): %s\n", len(summary.Changed), SummarizePaths(summary.Changed, 8))
	}
	if summary.Clean {
		fmt.Println("all generated files match their documents")
	}
	return nil
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}
