package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modoturbo/repocompat/internal/adapters/outbound/tui"
	"github.com/modoturbo/repocompat/internal/domain"
)

func newDepsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Inspect and compare dependency manifests",
	}
	cmd.AddCommand(newDepsDiffCmd(g))
	cmd.AddCommand(newDepsTreeCmd(g))
	cmd.AddCommand(newDepsAuditCmd(g))
	return cmd
}

func newDepsDiffCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <base-dir> <target-dir>",
		Short: "Partition two manifests into added, removed, updated and unchanged dependencies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.engine()
			if err != nil {
				return err
			}
			base, err := optionalManifest(e, args[0])
			if err != nil {
				return err
			}
			target, err := optionalManifest(e, args[1])
			if err != nil {
				return err
			}
			cs := e.deps.Compare(base, target)
			if g.jsonOutput {
				return renderJSON(cmd, cs)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderDependencyDiff(cs))
			return nil
		},
	}
}

func newDepsTreeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree [dir]",
		Short: "Show the resolved dependency tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.engine()
			if err != nil {
				return err
			}
			tree := e.deps.BuildTree(cmd.Context(), dirArg(args))
			if g.jsonOutput {
				return renderJSON(cmd, tree)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderTree(tree))
			return nil
		},
	}
}

func newDepsAuditCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit [dir]",
		Short: "Run a vulnerability audit through the package manager",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.engine()
			if err != nil {
				return err
			}
			vulns := e.deps.AuditVulnerabilities(cmd.Context(), dirArg(args))
			if g.jsonOutput {
				return renderJSON(cmd, vulns)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderVulnerabilities(vulns))
			return nil
		},
	}
}

// optionalManifest treats a missing manifest as no dependencies.
func optionalManifest(e *engine, dir string) (*domain.Manifest, error) {
	m, err := e.deps.Manifest(dir)
	if errors.Is(err, domain.ErrManifestMissing) {
		return nil, nil
	}
	return m, err
}

func dirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
