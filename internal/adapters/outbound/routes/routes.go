// Package routes derives endpoint descriptors from route files.
package routes

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/modoturbo/repocompat/internal/domain"
)

// routeStyle is the framework convention a route file follows.
type routeStyle int

const (
	styleNone routeStyle = iota
	styleNextPages
	styleNextApp
	styleExpress
)

var (
	nextPagesGlobs = []string{"pages/api/**/*.{js,jsx,ts,tsx}", "**/pages/api/**/*.{js,jsx,ts,tsx}"}
	nextAppGlobs   = []string{"app/**/route.{js,ts}", "**/app/**/route.{js,ts}"}
	expressGlobs   = []string{
		"**/routes/**/*.{js,ts,mjs,cjs}",
		"**/api/**/*.{js,ts,mjs,cjs}",
		"**/server/**/*.{js,ts,mjs,cjs}",
	}
)

// New returns the endpoint parser for a strategy name.
func New(strategy string) (domain.EndpointParser, error) {
	switch strategy {
	case "", domain.StrategyConvention:
		return Convention{}, nil
	case domain.StrategyStub:
		return Stub{}, nil
	default:
		return nil, fmt.Errorf("unknown endpoint strategy %q", strategy)
	}
}

func styleOf(rel string) routeStyle {
	switch {
	case matchAny(nextPagesGlobs, rel):
		return styleNextPages
	case matchAny(nextAppGlobs, rel):
		return styleNextApp
	case matchAny(expressGlobs, rel):
		return styleExpress
	}
	return styleNone
}

func matchAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// filePath maps a Next.js route file to its URL path. Dynamic segments
// become :name, route groups and index files vanish.
func filePath(rel string, style routeStyle) string {
	var marker string
	switch style {
	case styleNextPages:
		marker = "pages/"
	case styleNextApp:
		marker = "app/"
	default:
		return ""
	}
	rest := rel
	if i := strings.LastIndex("/"+rel, "/"+marker); i >= 0 {
		rest = rel[i+len(marker):]
	}
	rest = strings.TrimSuffix(rest, path.Ext(rest))
	segments := strings.Split(rest, "/")
	if style == styleNextApp {
		segments = segments[:len(segments)-1] // route.ts
	}

	var out []string
	for i, s := range segments {
		switch {
		case s == "index" && i == len(segments)-1:
		case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		case strings.HasPrefix(s, "[["):
			out = append(out, ":"+strings.Trim(s, "[].")+"?")
		case strings.HasPrefix(s, "["):
			out = append(out, ":"+strings.Trim(s, "[]."))
		default:
			out = append(out, s)
		}
	}
	return "/" + strings.Join(out, "/")
}

// pathParams returns the :name segments of a route path as required
// string parameters.
func pathParams(route string) []domain.EndpointParameter {
	var out []domain.EndpointParameter
	for _, s := range strings.Split(route, "/") {
		if strings.HasPrefix(s, ":") {
			name := strings.TrimSuffix(strings.TrimPrefix(s, ":"), "?")
			out = append(out, domain.EndpointParameter{
				Name: name, In: "path", Type: "string", Required: !strings.HasSuffix(s, "?"),
			})
		}
	}
	return out
}

// walkRouteFiles reads every route file among files and hands it to fn.
// Unreadable files are skipped.
func walkRouteFiles(ctx context.Context, rootPath string, files []string, fn func(rel string, style routeStyle, content string)) error {
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		style := styleOf(rel)
		if style == styleNone {
			continue
		}
		data, err := os.ReadFile(filepath.Join(rootPath, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		fn(rel, style, string(data))
	}
	return nil
}

// finish de-duplicates by METHOD path, keeping the first, and sorts.
func finish(eps []domain.EndpointDescriptor) []domain.EndpointDescriptor {
	seen := make(map[string]bool, len(eps))
	out := make([]domain.EndpointDescriptor, 0, len(eps))
	for _, e := range eps {
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Stub emits a fixed GET and POST shape for every route file.
type Stub struct{}

func (Stub) ExtractEndpoints(ctx context.Context, rootPath string, files []string) ([]domain.EndpointDescriptor, error) {
	var eps []domain.EndpointDescriptor
	err := walkRouteFiles(ctx, rootPath, files, func(rel string, style routeStyle, _ string) {
		route := filePath(rel, style)
		if route == "" {
			route = "/" + strings.TrimSuffix(path.Base(rel), path.Ext(rel))
		}
		for _, method := range []string{"GET", "POST"} {
			eps = append(eps, domain.EndpointDescriptor{
				Path:       route,
				Method:     method,
				Parameters: pathParams(route),
				Response:   domain.ResponseSchema{StatusCode: 200, ContentType: "application/json"},
				Source:     rel,
			})
		}
	})
	if err != nil {
		return nil, err
	}
	return finish(eps), nil
}
