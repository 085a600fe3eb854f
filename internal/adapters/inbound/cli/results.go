package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modoturbo/repocompat/internal/adapters/outbound/tui"
)

func newResultsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect stored analysis results",
	}
	cmd.AddCommand(newResultsListCmd(g))
	cmd.AddCommand(newResultsShowCmd(g))
	return cmd
}

func newResultsListCmd(g *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.engine()
			if err != nil {
				return err
			}
			results, err := e.service.ListResults(limit)
			if err != nil {
				return fmt.Errorf("listing results: %w", err)
			}
			if g.jsonOutput {
				return renderJSON(cmd, results)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderResultList(results))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results (0 for all)")
	return cmd
}

func newResultsShowCmd(g *globalOptions) *cobra.Command {
	var details bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.engine()
			if err != nil {
				return err
			}
			result, err := e.service.GetResult(args[0])
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return renderJSON(cmd, result)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderAnalysis(result))
			if details {
				for _, c := range result.Comparisons {
					fmt.Fprint(cmd.OutOrStdout(), tui.RenderComparison(c))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&details, "details", false, "Render every comparison in full")
	return cmd
}
