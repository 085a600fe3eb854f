package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modoturbo/repocompat/internal/adapters/outbound/tui"
	"github.com/modoturbo/repocompat/internal/domain"
)

func newAnalyzeCmd(g *globalOptions) *cobra.Command {
	var (
		details  bool
		ciMode   bool
		minScore int
	)

	cmd := &cobra.Command{
		Use:     "analyze <base> <target> [target...]",
		Aliases: []string{"compare"},
		Short:   "Compare a base repository with one or more targets",
		Long: "Collect the base and every target (local paths or remote URLs, optionally suffixed with #branch), " +
			"compare each target with the base, score the result and store it.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.engine()
			if err != nil {
				return err
			}

			req := domain.AnalysisRequest{Base: e.repository(args[0])}
			for _, ref := range args[1:] {
				req.Targets = append(req.Targets, e.repository(ref))
			}

			result, err := e.service.Analyze(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if g.jsonOutput {
				if err := renderJSON(cmd, result); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderAnalysis(result))
				if details {
					for _, c := range result.Comparisons {
						fmt.Fprint(cmd.OutOrStdout(), tui.RenderComparison(c))
					}
				}
			}

			if ciMode {
				for _, c := range result.Comparisons {
					if c.CompatibilityScore < minScore {
						return fmt.Errorf("%s scored %d, below minimum %d", c.Target, c.CompatibilityScore, minScore)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&details, "details", false, "Render every comparison in full")
	cmd.Flags().BoolVar(&ciMode, "ci", false, "CI mode: exit 1 if any comparison is below --min")
	cmd.Flags().IntVar(&minScore, "min", 0, "Minimum compatibility score for CI mode")

	return cmd
}
