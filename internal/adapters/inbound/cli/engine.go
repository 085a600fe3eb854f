package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/modoturbo/repocompat/internal/adapters/outbound/config"
	"github.com/modoturbo/repocompat/internal/adapters/outbound/manifest"
	"github.com/modoturbo/repocompat/internal/adapters/outbound/npm"
	"github.com/modoturbo/repocompat/internal/adapters/outbound/parser"
	"github.com/modoturbo/repocompat/internal/adapters/outbound/routes"
	"github.com/modoturbo/repocompat/internal/adapters/outbound/scanner"
	"github.com/modoturbo/repocompat/internal/adapters/outbound/store"
	"github.com/modoturbo/repocompat/internal/adapters/outbound/workspace"
	"github.com/modoturbo/repocompat/internal/application"
	"github.com/modoturbo/repocompat/internal/domain"
)

// engine is the composition root: every adapter and service a command may
// need, built from the effective run configuration.
type engine struct {
	cfg       domain.RunConfig
	token     string
	extractor *application.StructureExtractor
	snapshots *application.SnapshotBuilder
	deps      *application.DependencyAnalyzer
	endpoints *application.EndpointValidator
	service   *application.CompatibilityService
}

func (g *globalOptions) engine() (*engine, error) {
	path := g.configPath
	if path == "" {
		path = "."
	}
	cfg, err := config.New().Load(path)
	if err != nil {
		return nil, err
	}
	if g.storeDir != "" {
		cfg.Store.Dir = g.storeDir
	}

	logger := g.logger
	if logger == nil {
		logger = slog.Default()
	}
	opts := []application.Option{
		application.WithLogger(logger),
		application.WithExcludePaths(cfg.Scanner.ExcludePaths...),
		application.WithFileConcurrency(cfg.Concurrency.Files),
		application.WithRepositoryConcurrency(cfg.Concurrency.Repositories),
		application.WithAudit(cfg.AuditEnabled()),
		application.WithTree(cfg.TreeEnabled()),
	}

	routeParser, err := routes.New(cfg.Endpoints.Strategy)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrConfigurationBootstrap)
	}
	pm := npm.New(
		npm.WithBinary(cfg.Dependencies.PackageManager),
		npm.WithTimeouts(cfg.Timeouts.Tree, cfg.Timeouts.Audit),
		npm.WithMaxDepth(cfg.Dependencies.MaxTreeDepth),
	)
	provider := workspace.New(
		workspace.WithBaseDir(cfg.Workspace.Dir),
		workspace.WithCloneTimeout(cfg.Timeouts.Clone),
		workspace.WithKeepClones(cfg.Workspace.KeepClones),
	)

	e := &engine{cfg: cfg}
	if g.tokenEnv != "" {
		e.token = os.Getenv(g.tokenEnv)
	}
	e.extractor = application.NewStructureExtractor(
		scanner.New(),
		parser.New(parser.WithMaxFileBytes(cfg.Scanner.MaxFileBytes)),
		opts...,
	)
	e.snapshots = application.NewSnapshotBuilder(provider, e.extractor, opts...)
	e.deps = application.NewDependencyAnalyzer(manifest.New(), pm, opts...)
	e.endpoints = application.NewEndpointValidator(routeParser, opts...)
	e.service = application.NewCompatibilityService(
		e.snapshots,
		e.deps,
		e.endpoints,
		store.New(cfg.Store.Dir, store.WithLogger(logger)),
		cfg,
		opts...,
	)
	return e, nil
}

func (e *engine) repository(ref string) domain.RepositoryDescriptor {
	return domain.ParseRepositoryArg(ref, e.token)
}

func renderJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
