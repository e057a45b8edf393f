package cli

import (
	"fmt"
	"strings"

	"github.com/morozRed/tangle/internal/config"
	"github.com/morozRed/tangle/internal/document"
	"github.com/morozRed/tangle/internal/fileutil"
	"github.com/morozRed/tangle/internal/options"
	"github.com/morozRed/tangle/internal/tangle"
	"github.com/morozRed/tangle/internal/trace"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type CollectedFragment struct {
	Segment  string   `json:"segment"`
	Heading  []string `json:"heading"`
	Language string   `json:"language"`
	Name     string   `json:"name,omitempty"`
	Line     int      `json:"line"`

	// TangledBy names the option layer that chose the target.
	TangledBy string `json:"tangled_by,omitempty"`
}

type CollectedTarget struct {
	Target    string              `json:"target"`
	Fragments []CollectedFragment `json:"fragments"`
}

func RunCollect(cmd *cobra.Command, args []string) error {
	env := config.EnvFromContext(cmd.Context())
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}
	langs, err := ParseLanguageFilter(cmd)
	if err != nil {
		return err
	}

	doc, err := document.Load(args[0])
	if err != nil {
		return err
	}
	settings := env.Settings()
	settings.Languages = langs
	groups, err := tangle.Collect(doc, settings)
	if err != nil {
		return err
	}

	out := make([]CollectedTarget, 0, len(groups))
	for _, g := range groups {
		ct := CollectedTarget{Target: g.Target, Fragments: make([]CollectedFragment, 0, len(g.Entries))}
		for _, e := range g.Entries {
			line, _ := doc.LineColumn(e.Fragment.Start)
			d := trace.Descriptor{Label: e.Fragment.HeadingLabel(), Index: e.Index}
			ct.Fragments = append(ct.Fragments, CollectedFragment{
				Segment:  d.String(),
				Heading:  e.Fragment.Heading.Path(),
				Language: e.Fragment.Language,
				Name:     e.Fragment.Name,
				Line:     line,

				TangledBy: e.Options.Origins[options.KeyTangle],
			})
		}
		out = append(out, ct)
	}
	env.Log.Debug("collected", zap.String("document", doc.Path), zap.Int("targets", len(out)))

	if asJSON {
		return fileutil.PrintJSON(out)
	}
	for _, ct := range out {
		fmt.Printf("%s (%d fragments)\n", ct.Target, len(ct.Fragments))
		for _, f := range ct.Fragments {
			where := strings.Join(f.Heading, " / ")
			if where == "" {
				where = "(no heading)"
			}
			fmt.Printf("  %-24s %s:%d %s [%s] via %s\n", f.Segment, doc.Path, f.Line, where, f.Language, f.TangledBy)
		}
	}
	return nil
}

func RunExpand(cmd *cobra.Command, args []string) error {
	env := config.EnvFromContext(cmd.Context())
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}
	ctx, err := ParseContext(cmd)
	if err != nil {
		return err
	}

	doc, err := document.Load(args[0])
	if err != nil {
		return err
	}
	plan, err := tangle.NewPlan(doc, env.Settings())
	if err != nil {
		return err
	}
	exp, err := plan.ExpandReference(args[1], ctx)
	if err != nil {
		return err
	}

	if asJSON {
		return fileutil.PrintJSON(struct {
			*tangle.Expansion
			Context  string   `json:"context"`
			Warnings []string `json:"warnings,omitempty"`
		}{exp, ctx.String(), WarningMessages(exp.Warnings)})
	}
	fmt.Println(exp.Text)
	return nil
}
