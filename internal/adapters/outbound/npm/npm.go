// Package npm adapts the npm CLI to domain.PackageManager.
package npm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modoturbo/repocompat/internal/domain"
)

// Client implements domain.PackageManager by running npm.
type Client struct {
	runner       Runner
	binary       string
	treeTimeout  time.Duration
	auditTimeout time.Duration
	maxDepth     int
}

type Option func(*Client)

func WithRunner(r Runner) Option { return func(c *Client) { c.runner = r } }

func WithBinary(name string) Option { return func(c *Client) { c.binary = name } }

// WithTimeouts bounds each npm ls and npm audit invocation.
func WithTimeouts(tree, audit time.Duration) Option {
	return func(c *Client) {
		c.treeTimeout = tree
		c.auditTimeout = audit
	}
}

// WithMaxDepth truncates resolved trees below depth n. Zero keeps everything.
func WithMaxDepth(n int) Option { return func(c *Client) { c.maxDepth = n } }

func New(opts ...Option) *Client {
	c := &Client{
		runner:       ExecRunner{},
		binary:       "npm",
		treeTimeout:  time.Minute,
		auditTimeout: time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type lsNode struct {
	Version      string            `json:"version"`
	Dependencies map[string]lsNode `json:"dependencies"`
}

// Tree resolves the installed dependency tree with `npm ls --json --all`.
// npm exits non-zero for missing or extraneous packages while still printing
// the tree, so output is accepted whenever it decodes.
func (c *Client) Tree(ctx context.Context, dir string) ([]domain.DependencyTreeNode, error) {
	out, err := c.run(ctx, c.treeTimeout, dir, "ls", "--json", "--all")
	if len(out) == 0 {
		if err == nil {
			err = errors.New("empty output")
		}
		return nil, fmt.Errorf("npm ls in %s: %w", dir, err)
	}
	var root lsNode
	if jerr := json.Unmarshal(out, &root); jerr != nil {
		return nil, fmt.Errorf("decoding npm ls output: %w", jerr)
	}
	return c.nodes(root.Dependencies, 1), nil
}

func (c *Client) nodes(deps map[string]lsNode, depth int) []domain.DependencyTreeNode {
	if len(deps) == 0 {
		return nil
	}
	out := make([]domain.DependencyTreeNode, 0, len(deps))
	for name, d := range deps {
		n := domain.DependencyTreeNode{Name: name, Version: d.Version}
		if c.maxDepth == 0 || depth < c.maxDepth {
			n.Dependencies = c.nodes(d.Dependencies, depth+1)
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Audit runs `npm audit --json`. npm exits 1 when vulnerabilities are found;
// the report is accepted in that case too. Both the v1 (advisories) and v2
// (vulnerabilities) report shapes are understood.
func (c *Client) Audit(ctx context.Context, dir string) ([]domain.VulnerabilityReport, error) {
	out, err := c.run(ctx, c.auditTimeout, dir, "audit", "--json")
	if len(out) == 0 {
		if err == nil {
			err = errors.New("empty output")
		}
		return nil, fmt.Errorf("npm audit in %s: %w: %w", dir, err, domain.ErrAuditUnavailable)
	}
	reports, perr := ParseAudit(out)
	if perr != nil {
		return nil, fmt.Errorf("npm audit in %s: %v: %w", dir, perr, domain.ErrAuditUnavailable)
	}
	return reports, nil
}

func (c *Client) run(ctx context.Context, timeout time.Duration, dir string, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	out, err := c.runner.Run(ctx, dir, c.binary, args...)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%s %s: %w", c.binary, strings.Join(args, " "), domain.ErrTimeout)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return out, err
}

type auditReport struct {
	Advisories      map[string]advisory      `json:"advisories"`
	Vulnerabilities map[string]vulnerability `json:"vulnerabilities"`
	Error           *struct {
		Code    string `json:"code"`
		Summary string `json:"summary"`
	} `json:"error"`
}

type advisory struct {
	ModuleName      string `json:"module_name"`
	Severity        string `json:"severity"`
	Title           string `json:"title"`
	PatchedVersions string `json:"patched_versions"`
	VulnerableRange string `json:"vulnerable_versions"`
	Findings        []struct {
		Version string `json:"version"`
	} `json:"findings"`
}

type vulnerability struct {
	Name         string            `json:"name"`
	Severity     string            `json:"severity"`
	Range        string            `json:"range"`
	Via          []json.RawMessage `json:"via"`
	FixAvailable json.RawMessage   `json:"fixAvailable"`
}

type viaAdvisory struct {
	Title string `json:"title"`
}

type fixInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ParseAudit decodes an npm audit report, v1 or v2.
func ParseAudit(data []byte) ([]domain.VulnerabilityReport, error) {
	var r auditReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding audit report: %w", err)
	}
	if r.Error != nil {
		return nil, fmt.Errorf("audit failed: %s %s", r.Error.Code, r.Error.Summary)
	}

	var out []domain.VulnerabilityReport
	for _, a := range r.Advisories {
		v := domain.VulnerabilityReport{
			Package:         a.ModuleName,
			Version:         a.VulnerableRange,
			Severity:        a.Severity,
			Title:           a.Title,
			PatchedVersions: a.PatchedVersions,
		}
		if len(a.Findings) > 0 {
			v.Version = a.Findings[0].Version
		}
		out = append(out, v)
	}
	for name, vuln := range r.Vulnerabilities {
		if vuln.Name != "" {
			name = vuln.Name
		}
		v := domain.VulnerabilityReport{
			Package:  name,
			Version:  vuln.Range,
			Severity: vuln.Severity,
			Title:    viaTitle(vuln.Via),
		}
		var fix fixInfo
		if json.Unmarshal(vuln.FixAvailable, &fix) == nil && fix.Name == name {
			v.PatchedVersions = fix.Version
		}
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Package != out[j].Package {
			return out[i].Package < out[j].Package
		}
		if out[i].Severity != out[j].Severity {
			return out[i].Severity < out[j].Severity
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

// viaTitle returns the first advisory title, or names the dependency the
// vulnerability is inherited through.
func viaTitle(via []json.RawMessage) string {
	var through []string
	for _, raw := range via {
		var adv viaAdvisory
		if json.Unmarshal(raw, &adv) == nil && adv.Title != "" {
			return adv.Title
		}
		var name string
		if json.Unmarshal(raw, &name) == nil && name != "" {
			through = append(through, name)
		}
	}
	if len(through) > 0 {
		return "vulnerable through " + strings.Join(through, ", ")
	}
	return ""
}
