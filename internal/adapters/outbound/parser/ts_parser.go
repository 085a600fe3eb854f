// Package parser extracts structural facts from JavaScript and TypeScript
// sources with tree-sitter.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/modoturbo/repocompat/internal/domain"
	"github.com/modoturbo/repocompat/internal/domain/patterns"
)

// TSParser implements domain.UnitParser.
type TSParser struct {
	maxFileBytes int64
	rules        patterns.Table
}

type Option func(*TSParser)

// WithMaxFileBytes rejects files larger than n bytes. Zero disables the limit.
func WithMaxFileBytes(n int64) Option {
	return func(p *TSParser) { p.maxFileBytes = n }
}

// WithRules replaces the idiom detection table.
func WithRules(t patterns.Table) Option {
	return func(p *TSParser) { p.rules = t }
}

func New(opts ...Option) *TSParser {
	p := &TSParser{rules: patterns.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile parses rootPath/relPath into a SourceUnit. Unreadable files and
// files whose syntax tree contains errors are reported as domain.ErrFileParse.
func (p *TSParser) ParseFile(ctx context.Context, rootPath, relPath string) (*domain.SourceUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := filepath.Join(rootPath, filepath.FromSlash(relPath))
	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", relPath, err, domain.ErrFileParse)
	}
	if p.maxFileBytes > 0 && info.Size() > p.maxFileBytes {
		return nil, fmt.Errorf("%s: file exceeds %d bytes: %w", relPath, p.maxFileBytes, domain.ErrFileParse)
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", relPath, err, domain.ErrFileParse)
	}

	lang := languageFor(relPath)
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s: %v: %w", relPath, err, domain.ErrFileParse)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return nil, fmt.Errorf("%s: source contains syntax errors: %w", relPath, domain.ErrFileParse)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := collect(root, content)
	return p.build(filepath.ToSlash(relPath), content, f), nil
}

func languageFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		return tsx.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}
