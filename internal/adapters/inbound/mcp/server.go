package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/modoturbo/repocompat/internal/application"
)

// Services are the application services the MCP tools delegate to.
type Services struct {
	Compatibility *application.CompatibilityService
	Dependencies  *application.DependencyAnalyzer
	Structure     *application.StructureExtractor
	// Token authenticates clones of remote repositories named in tool calls.
	Token string
}

// NewServer creates an MCP server with every repocompat tool registered.
func NewServer(svc Services, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"repocompat",
		version,
		server.WithToolCapabilities(true),
	)
	registerTools(s, svc)
	return s
}
