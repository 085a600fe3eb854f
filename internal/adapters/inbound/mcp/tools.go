package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/modoturbo/repocompat/internal/domain"
)

// registerTools registers all repocompat MCP tools on the given server.
func registerTools(s *server.MCPServer, svc Services) {
	// 1. repocompat_analyze
	s.AddTool(
		mcplib.NewTool("repocompat_analyze",
			mcplib.WithDescription("Compare a base repository with one or more targets and return the stored analysis as JSON"),
			mcplib.WithString("base",
				mcplib.Required(),
				mcplib.Description("Local path or remote URL of the base repository, optionally suffixed with #branch"),
			),
			mcplib.WithString("targets",
				mcplib.Required(),
				mcplib.Description("Comma-separated local paths or remote URLs of the target repositories"),
			),
		),
		handleAnalyze(svc),
	)

	// 2. repocompat_get_result
	s.AddTool(
		mcplib.NewTool("repocompat_get_result",
			mcplib.WithDescription("Returns a stored analysis result by id"),
			mcplib.WithString("id", mcplib.Required(), mcplib.Description("Analysis result id")),
		),
		handleGetResult(svc),
	)

	// 3. repocompat_list_results
	s.AddTool(
		mcplib.NewTool("repocompat_list_results",
			mcplib.WithDescription("Lists stored analysis results, newest first, as id/score/risk summaries"),
			mcplib.WithNumber("limit", mcplib.Description("Maximum number of results (default 20)")),
		),
		handleListResults(svc),
	)

	// 4. repocompat_compare_manifests
	s.AddTool(
		mcplib.NewTool("repocompat_compare_manifests",
			mcplib.WithDescription("Partitions the dependencies of two package.json manifests into added, removed, updated and unchanged"),
			mcplib.WithString("base_path", mcplib.Required(), mcplib.Description("Directory holding the base package.json")),
			mcplib.WithString("target_path", mcplib.Required(), mcplib.Description("Directory holding the target package.json")),
		),
		handleCompareManifests(svc),
	)

	// 5. repocompat_extract_structure
	s.AddTool(
		mcplib.NewTool("repocompat_extract_structure",
			mcplib.WithDescription("Extracts components, services and utilities of a local working copy"),
			mcplib.WithString("path", mcplib.Required(), mcplib.Description("Local working copy to parse")),
		),
		handleExtractStructure(svc),
	)
}

func handleAnalyze(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		base, err := request.RequireString("base")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		targetsStr, err := request.RequireString("targets")
		if err != nil {
			return errorResult(err.Error()), nil
		}

		req := domain.AnalysisRequest{Base: domain.ParseRepositoryArg(base, svc.Token)}
		for _, ref := range splitList(targetsStr) {
			req.Targets = append(req.Targets, domain.ParseRepositoryArg(ref, svc.Token))
		}

		result, err := svc.Compatibility.Analyze(ctx, req)
		if err != nil {
			return errorResult(fmt.Sprintf("analysis failed: %v", err)), nil
		}
		return jsonResult(result)
	}
}

func handleGetResult(svc Services) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		result, err := svc.Compatibility.GetResult(id)
		if errors.Is(err, domain.ErrResultNotFound) {
			return errorResult(fmt.Sprintf("no analysis result with id %q", id)), nil
		}
		if err != nil {
			return errorResult(fmt.Sprintf("loading result: %v", err)), nil
		}
		return jsonResult(result)
	}
}

type resultSummary struct {
	ID          string           `json:"id"`
	CreatedAt   string           `json:"created_at"`
	Comparisons int              `json:"comparisons"`
	LowestScore int              `json:"lowest_score"`
	OverallRisk domain.RiskLevel `json:"overall_risk"`
}

func handleListResults(svc Services) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		limit := request.GetInt("limit", 20)
		results, err := svc.Compatibility.ListResults(limit)
		if err != nil {
			return errorResult(fmt.Sprintf("listing results: %v", err)), nil
		}
		out := make([]resultSummary, 0, len(results))
		for _, r := range results {
			out = append(out, resultSummary{
				ID:          r.ID,
				CreatedAt:   r.CreatedAt.Format(time.RFC3339),
				Comparisons: r.Summary.TotalComparisons,
				LowestScore: r.Summary.LowestScore,
				OverallRisk: r.Summary.OverallRisk,
			})
		}
		return jsonResult(out)
	}
}

func handleCompareManifests(svc Services) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		basePath, err := request.RequireString("base_path")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		targetPath, err := request.RequireString("target_path")
		if err != nil {
			return errorResult(err.Error()), nil
		}

		var manifests [2]*domain.Manifest
		for i, dir := range []string{basePath, targetPath} {
			m, err := svc.Dependencies.Manifest(dir)
			if err != nil && !errors.Is(err, domain.ErrManifestMissing) {
				return errorResult(fmt.Sprintf("reading manifest: %v", err)), nil
			}
			manifests[i] = m
		}
		return jsonResult(svc.Dependencies.Compare(manifests[0], manifests[1]))
	}
}

func handleExtractStructure(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		ps, err := svc.Structure.Extract(ctx, path)
		if err != nil {
			return errorResult(fmt.Sprintf("extraction failed: %v", err)), nil
		}
		return jsonResult(ps)
	}
}

// splitList splits a comma-separated string and trims whitespace.
func splitList(s string) []string {
	var result []string
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
