package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modoturbo/repocompat/internal/domain"
	"github.com/modoturbo/repocompat/internal/domain/endpoint"
)

// EndpointValidator extracts API routes from two snapshots and checks the
// target's contracts against the base.
type EndpointValidator struct {
	parser domain.EndpointParser
	logger *slog.Logger
}

func NewEndpointValidator(parser domain.EndpointParser, opts ...Option) *EndpointValidator {
	o := buildOptions(opts)
	return &EndpointValidator{parser: parser, logger: o.logger}
}

// Extract returns the endpoints declared by the source files of ps.
func (v *EndpointValidator) Extract(ctx context.Context, ps *domain.ProjectStructure) ([]domain.EndpointDescriptor, error) {
	if ps == nil {
		return nil, nil
	}
	var files []string
	for _, f := range ps.Files {
		if f.Kind == domain.FileSource {
			files = append(files, f.Path)
		}
	}
	eps, err := v.parser.ExtractEndpoints(ctx, ps.RootPath, files)
	if err != nil {
		return nil, fmt.Errorf("extracting endpoints from %s: %w", ps.RootPath, err)
	}
	return eps, nil
}

// Compare returns the endpoint report of target against base, or nil when
// neither side exposes endpoints.
func (v *EndpointValidator) Compare(ctx context.Context, base, target *domain.ProjectStructure) (*domain.EndpointReport, error) {
	baseEps, err := v.Extract(ctx, base)
	if err != nil {
		return nil, err
	}
	targetEps, err := v.Extract(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(baseEps) == 0 && len(targetEps) == 0 {
		return nil, nil
	}
	report := endpoint.Match(baseEps, targetEps)
	v.logger.Debug("compared endpoints",
		"base", len(baseEps),
		"target", len(targetEps),
		"breaking", len(report.BreakingChanges),
	)
	return &report, nil
}
