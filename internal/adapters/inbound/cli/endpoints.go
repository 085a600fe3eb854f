package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modoturbo/repocompat/internal/adapters/outbound/tui"
)

func newEndpointsCmd(g *globalOptions) *cobra.Command {
	var against string

	cmd := &cobra.Command{
		Use:   "endpoints [dir]",
		Short: "List API endpoints, or check them against a base with --against",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.engine()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			target, err := e.extractor.Extract(ctx, dirArg(args))
			if err != nil {
				return fmt.Errorf("extracting structure: %w", err)
			}

			if against == "" {
				eps, err := e.endpoints.Extract(ctx, target)
				if err != nil {
					return err
				}
				if g.jsonOutput {
					return renderJSON(cmd, eps)
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderEndpoints(eps))
				return nil
			}

			base, err := e.extractor.Extract(ctx, against)
			if err != nil {
				return fmt.Errorf("extracting base structure: %w", err)
			}
			report, err := e.endpoints.Compare(ctx, base, target)
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return renderJSON(cmd, report)
			}
			if report == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No endpoints found in either working copy.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderEndpointReport(*report))
			return nil
		},
	}

	cmd.Flags().StringVar(&against, "against", "", "Base working copy to check endpoint contracts against")
	return cmd
}
