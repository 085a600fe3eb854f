package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modoturbo/repocompat/internal/adapters/outbound/tui"
)

func newStructureCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "structure [dir]",
		Short: "Extract the structural model of a working copy",
		Long:  "Parse every JS/TS source file and report components, services and utilities with their complexity.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.engine()
			if err != nil {
				return err
			}
			ps, err := e.extractor.Extract(cmd.Context(), dirArg(args))
			if err != nil {
				return fmt.Errorf("extracting structure: %w", err)
			}
			if g.jsonOutput {
				return renderJSON(cmd, ps)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderStructure(ps))
			return nil
		},
	}
}
