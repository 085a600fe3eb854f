package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/modoturbo/repocompat/internal/domain"
)

// StructureExtractor builds the structural model of one working copy:
// scan → parse every source file on a bounded pool → group by kind.
type StructureExtractor struct {
	scanner  domain.SourceScanner
	parser   domain.UnitParser
	excludes []string
	workers  int
	logger   *slog.Logger
}

func NewStructureExtractor(scanner domain.SourceScanner, parser domain.UnitParser, opts ...Option) *StructureExtractor {
	o := buildOptions(opts)
	return &StructureExtractor{
		scanner:  scanner,
		parser:   parser,
		excludes: o.excludePaths,
		workers:  o.fileWorkers,
		logger:   o.logger,
	}
}

type parseOutcome struct {
	unit *domain.SourceUnit
	skip *domain.SkippedFile
}

// Extract never fails on individual files: unreadable or unparseable files
// are logged and recorded in Skipped. Only a failure to scan the root and
// context cancellation are returned.
func (e *StructureExtractor) Extract(ctx context.Context, dir string) (*domain.ProjectStructure, error) {
	scan, err := e.scanner.Scan(dir, e.excludes...)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	for _, sk := range scan.Skipped {
		e.logger.Warn("skipping unreadable entry", "path", sk.Path, "error", sk.Reason)
	}

	outcomes := make([]parseOutcome, len(scan.SourceFiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, rel := range scan.SourceFiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			u, err := e.parser.ParseFile(gctx, scan.RootPath, rel)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.logger.Warn("skipping file", "path", rel, "error", err)
				outcomes[i] = parseOutcome{skip: &domain.SkippedFile{Path: rel, Reason: err.Error()}}
				return nil
			}
			outcomes[i] = parseOutcome{unit: u}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ps := &domain.ProjectStructure{
		RootPath:    scan.RootPath,
		Components:  []domain.SourceUnit{},
		Services:    []domain.SourceUnit{},
		Utilities:   []domain.SourceUnit{},
		Files:       scan.Files,
		Directories: scan.Directories,
		Skipped:     append([]domain.SkippedFile(nil), scan.Skipped...),
	}
	// SourceFiles are sorted, so every kind list comes out ordered by path.
	for _, o := range outcomes {
		switch {
		case o.skip != nil:
			ps.Skipped = append(ps.Skipped, *o.skip)
		case o.unit == nil:
		case o.unit.Kind == domain.KindComponent:
			ps.Components = append(ps.Components, *o.unit)
		case o.unit.Kind == domain.KindService:
			ps.Services = append(ps.Services, *o.unit)
		default:
			ps.Utilities = append(ps.Utilities, *o.unit)
		}
	}
	sort.SliceStable(ps.Skipped, func(i, j int) bool { return ps.Skipped[i].Path < ps.Skipped[j].Path })

	e.logger.Debug("extracted structure",
		"path", scan.RootPath,
		"components", len(ps.Components),
		"services", len(ps.Services),
		"utilities", len(ps.Utilities),
		"skipped", len(ps.Skipped),
	)
	return ps, nil
}
