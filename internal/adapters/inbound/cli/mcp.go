package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mcpadapter "github.com/modoturbo/repocompat/internal/adapters/inbound/mcp"
)

func newMCPCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  "Commands for running the repocompat MCP (Model Context Protocol) server.",
	}
	cmd.AddCommand(newMCPServeCmd(g))
	return cmd
}

func newMCPServeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the repocompat MCP server (stdio)",
		Long:  "Start the MCP server on stdio so assistants can run analyses, inspect stored results and compare manifests.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.engine()
			if err != nil {
				return err
			}
			s := mcpadapter.NewServer(mcpadapter.Services{
				Compatibility: e.service,
				Dependencies:  e.deps,
				Structure:     e.extractor,
				Token:         e.token,
			}, version)
			return server.ServeStdio(s)
		},
	}
}
