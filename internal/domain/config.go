package domain

import (
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// CurrentConfigVersion is the newest configuration schema this build reads.
const CurrentConfigVersion = 1

// Endpoint extraction strategies.
const (
	StrategyConvention = "convention"
	StrategyStub       = "stub"
)

// Severity levels shared by issues, findings and compatibility rules.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Dependency changes a compatibility rule can match on.
const (
	DependencyChangeAdded    = "added"
	DependencyChangeRemoved  = "removed"
	DependencyChangeUpdated  = "updated"
	DependencyChangeBreaking = "breaking"
)

// RunConfig is the versioned configuration of an analysis run, loaded from
// .repocompat.yaml. Zero values mean "use the default".
type RunConfig struct {
	Version      int               `yaml:"version"      json:"version"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency"  json:"concurrency"`
	Timeouts     TimeoutConfig     `yaml:"timeouts"     json:"timeouts"`
	Scanner      ScannerConfig     `yaml:"scanner"      json:"scanner"`
	Dependencies DependencyConfig  `yaml:"dependencies" json:"dependencies"`
	Endpoints    EndpointConfig    `yaml:"endpoints"    json:"endpoints"`
	Scoring      ScoringConfig     `yaml:"scoring"      json:"scoring"`
	Store        StoreConfig       `yaml:"store"        json:"store"`
	Workspace    WorkspaceConfig   `yaml:"workspace"    json:"workspace"`
}

type ConcurrencyConfig struct {
	Repositories int `yaml:"repositories" json:"repositories,omitempty"`
	Files        int `yaml:"files"        json:"files,omitempty"`
}

type TimeoutConfig struct {
	Clone time.Duration `yaml:"clone" json:"clone,omitempty"`
	Audit time.Duration `yaml:"audit" json:"audit,omitempty"`
	Tree  time.Duration `yaml:"tree"  json:"tree,omitempty"`
}

type ScannerConfig struct {
	ExcludePaths []string `yaml:"exclude_paths"  json:"exclude_paths,omitempty"`
	MaxFileBytes int64    `yaml:"max_file_bytes" json:"max_file_bytes,omitempty"`
}

// DependencyConfig uses pointers so an explicit false is not mistaken for unset.
type DependencyConfig struct {
	Audit          *bool  `yaml:"audit,omitempty"  json:"audit,omitempty"`
	Tree           *bool  `yaml:"tree,omitempty"   json:"tree,omitempty"`
	PackageManager string `yaml:"package_manager"  json:"package_manager,omitempty"`
	MaxTreeDepth   int    `yaml:"max_tree_depth"   json:"max_tree_depth,omitempty"`
}

type EndpointConfig struct {
	Strategy string `yaml:"strategy" json:"strategy,omitempty"`
}

type ScoringConfig struct {
	Penalties           PenaltyOverrides `yaml:"penalties"             json:"penalties,omitempty"`
	Rules               []RuleConfig     `yaml:"rules"                 json:"rules,omitempty"`
	DisableBuiltinRules bool             `yaml:"disable_builtin_rules" json:"disable_builtin_rules,omitempty"`
	FrameworkPackages   []string         `yaml:"framework_packages"    json:"framework_packages,omitempty"`
}

// PenaltyOverrides lets users change individual penalty weights.
type PenaltyOverrides struct {
	BreakingFile       *int `yaml:"breaking_file,omitempty"       json:"breaking_file,omitempty"`
	DeletedFile        *int `yaml:"deleted_file,omitempty"        json:"deleted_file,omitempty"`
	RemovedDependency  *int `yaml:"removed_dependency,omitempty"  json:"removed_dependency,omitempty"`
	BreakingDependency *int `yaml:"breaking_dependency,omitempty" json:"breaking_dependency,omitempty"`
	BreakingConfig     *int `yaml:"breaking_config,omitempty"     json:"breaking_config,omitempty"`
	RuleError          *int `yaml:"rule_error,omitempty"          json:"rule_error,omitempty"`
	RuleWarning        *int `yaml:"rule_warning,omitempty"        json:"rule_warning,omitempty"`
}

// RuleConfig declares a user compatibility rule. A rule selects either a
// dependency (glob over names) or a path (glob over file paths).
type RuleConfig struct {
	ID               string `yaml:"id"                json:"id"`
	Description      string `yaml:"description"       json:"description,omitempty"`
	Severity         string `yaml:"severity"          json:"severity"`
	Dependency       string `yaml:"dependency"        json:"dependency,omitempty"`
	DependencyChange string `yaml:"dependency_change" json:"dependency_change,omitempty"`
	Path             string `yaml:"path"              json:"path,omitempty"`
	ChangeType       string `yaml:"change_type"       json:"change_type,omitempty"`
}

type StoreConfig struct {
	Dir string `yaml:"dir" json:"dir,omitempty"`
}

type WorkspaceConfig struct {
	Dir        string `yaml:"dir"         json:"dir,omitempty"`
	KeepClones bool   `yaml:"keep_clones" json:"keep_clones,omitempty"`
}

// Penalties are the effective point deductions used by the scorer.
type Penalties struct {
	BreakingFile       int `json:"breaking_file"`
	DeletedFile        int `json:"deleted_file"`
	RemovedDependency  int `json:"removed_dependency"`
	BreakingDependency int `json:"breaking_dependency"`
	BreakingConfig     int `json:"breaking_config"`
	RuleError          int `json:"rule_error"`
	RuleWarning        int `json:"rule_warning"`
}

// DefaultPenalties returns the stock penalty weights.
func DefaultPenalties() Penalties {
	return Penalties{
		BreakingFile:       10,
		DeletedFile:        15,
		RemovedDependency:  20,
		BreakingDependency: 10,
		BreakingConfig:     15,
		RuleError:          25,
		RuleWarning:        10,
	}
}

// DefaultFrameworkPackages are the packages whose major upgrades are treated
// as platform-level breaking changes.
var DefaultFrameworkPackages = []string{
	"react", "react-dom", "next", "vue", "nuxt", "@angular/core", "svelte", "typescript",
}

// DefaultRunConfig returns the stock run configuration.
func DefaultRunConfig() RunConfig {
	audit, tree := true, true
	return RunConfig{
		Version: CurrentConfigVersion,
		Concurrency: ConcurrencyConfig{
			Repositories: 4,
			Files:        8,
		},
		Timeouts: TimeoutConfig{
			Clone: 2 * time.Minute,
			Audit: time.Minute,
			Tree:  time.Minute,
		},
		Scanner: ScannerConfig{
			MaxFileBytes: 1 << 20,
		},
		Dependencies: DependencyConfig{
			Audit:          &audit,
			Tree:           &tree,
			PackageManager: "npm",
			MaxTreeDepth:   8,
		},
		Endpoints: EndpointConfig{Strategy: StrategyConvention},
		Scoring: ScoringConfig{
			FrameworkPackages: append([]string(nil), DefaultFrameworkPackages...),
		},
		Store: StoreConfig{Dir: ".repocompat/results"},
	}
}

// MergeWithDefaults overlays the explicit values of override on top of
// DefaultRunConfig, one field at a time.
func MergeWithDefaults(override RunConfig) RunConfig {
	result := DefaultRunConfig()

	if override.Version != 0 {
		result.Version = override.Version
	}

	if override.Concurrency.Repositories > 0 {
		result.Concurrency.Repositories = override.Concurrency.Repositories
	}
	if override.Concurrency.Files > 0 {
		result.Concurrency.Files = override.Concurrency.Files
	}

	if override.Timeouts.Clone > 0 {
		result.Timeouts.Clone = override.Timeouts.Clone
	}
	if override.Timeouts.Audit > 0 {
		result.Timeouts.Audit = override.Timeouts.Audit
	}
	if override.Timeouts.Tree > 0 {
		result.Timeouts.Tree = override.Timeouts.Tree
	}

	if len(override.Scanner.ExcludePaths) > 0 {
		result.Scanner.ExcludePaths = override.Scanner.ExcludePaths
	}
	if override.Scanner.MaxFileBytes > 0 {
		result.Scanner.MaxFileBytes = override.Scanner.MaxFileBytes
	}

	if override.Dependencies.Audit != nil {
		result.Dependencies.Audit = override.Dependencies.Audit
	}
	if override.Dependencies.Tree != nil {
		result.Dependencies.Tree = override.Dependencies.Tree
	}
	if override.Dependencies.PackageManager != "" {
		result.Dependencies.PackageManager = override.Dependencies.PackageManager
	}
	if override.Dependencies.MaxTreeDepth > 0 {
		result.Dependencies.MaxTreeDepth = override.Dependencies.MaxTreeDepth
	}

	if override.Endpoints.Strategy != "" {
		result.Endpoints.Strategy = override.Endpoints.Strategy
	}

	// Penalty overrides are resolved lazily by EffectivePenalties.
	result.Scoring.Penalties = override.Scoring.Penalties
	if len(override.Scoring.Rules) > 0 {
		result.Scoring.Rules = override.Scoring.Rules
	}
	result.Scoring.DisableBuiltinRules = override.Scoring.DisableBuiltinRules
	if len(override.Scoring.FrameworkPackages) > 0 {
		result.Scoring.FrameworkPackages = override.Scoring.FrameworkPackages
	}

	if override.Store.Dir != "" {
		result.Store.Dir = override.Store.Dir
	}

	if override.Workspace.Dir != "" {
		result.Workspace.Dir = override.Workspace.Dir
	}
	result.Workspace.KeepClones = override.Workspace.KeepClones

	return result
}

// EffectivePenalties resolves the penalty overrides against the defaults.
func (c RunConfig) EffectivePenalties() Penalties {
	p := DefaultPenalties()
	o := c.Scoring.Penalties
	pick := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	pick(&p.BreakingFile, o.BreakingFile)
	pick(&p.DeletedFile, o.DeletedFile)
	pick(&p.RemovedDependency, o.RemovedDependency)
	pick(&p.BreakingDependency, o.BreakingDependency)
	pick(&p.BreakingConfig, o.BreakingConfig)
	pick(&p.RuleError, o.RuleError)
	pick(&p.RuleWarning, o.RuleWarning)
	return p
}

// AuditEnabled reports whether vulnerability audits should run.
func (c RunConfig) AuditEnabled() bool {
	return c.Dependencies.Audit == nil || *c.Dependencies.Audit
}

// TreeEnabled reports whether dependency trees should be resolved.
func (c RunConfig) TreeEnabled() bool {
	return c.Dependencies.Tree == nil || *c.Dependencies.Tree
}

var (
	validStrategies      = []string{"", StrategyConvention, StrategyStub}
	validPackageManagers = []string{"", "npm"}
	validRuleSeverities  = []string{SeverityError, SeverityWarning}
	validDepChanges      = []string{"", DependencyChangeAdded, DependencyChangeRemoved, DependencyChangeUpdated, DependencyChangeBreaking}
	validChangeTypes     = []string{"", string(ChangeAdded), string(ChangeModified), string(ChangeDeleted)}
)

// Validate checks the raw config for invalid values and returns a descriptive error.
func (c RunConfig) Validate() error {
	if c.Version < 0 || c.Version > CurrentConfigVersion {
		return fmt.Errorf("unsupported config version %d (this build reads up to %d)", c.Version, CurrentConfigVersion)
	}

	if c.Concurrency.Repositories < 0 || c.Concurrency.Files < 0 {
		return fmt.Errorf("concurrency limits must not be negative")
	}

	timeouts := map[string]time.Duration{
		"clone": c.Timeouts.Clone,
		"audit": c.Timeouts.Audit,
		"tree":  c.Timeouts.Tree,
	}
	for name, d := range timeouts {
		if d < 0 {
			return fmt.Errorf("timeouts.%s must not be negative (got %s)", name, d)
		}
	}

	if c.Scanner.MaxFileBytes < 0 {
		return fmt.Errorf("scanner.max_file_bytes must not be negative")
	}
	for _, p := range c.Scanner.ExcludePaths {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}

	if !contains(validPackageManagers, c.Dependencies.PackageManager) {
		return fmt.Errorf("unknown package_manager %q (valid: npm)", c.Dependencies.PackageManager)
	}
	if c.Dependencies.MaxTreeDepth < 0 {
		return fmt.Errorf("dependencies.max_tree_depth must not be negative")
	}

	if !contains(validStrategies, c.Endpoints.Strategy) {
		return fmt.Errorf("unknown endpoint strategy %q (valid: convention, stub)", c.Endpoints.Strategy)
	}

	penalties := map[string]*int{
		"breaking_file":       c.Scoring.Penalties.BreakingFile,
		"deleted_file":        c.Scoring.Penalties.DeletedFile,
		"removed_dependency":  c.Scoring.Penalties.RemovedDependency,
		"breaking_dependency": c.Scoring.Penalties.BreakingDependency,
		"breaking_config":     c.Scoring.Penalties.BreakingConfig,
		"rule_error":          c.Scoring.Penalties.RuleError,
		"rule_warning":        c.Scoring.Penalties.RuleWarning,
	}
	for name, ptr := range penalties {
		if ptr != nil && (*ptr < 0 || *ptr > 100) {
			return fmt.Errorf("scoring.penalties.%s must be between 0 and 100 (got %d)", name, *ptr)
		}
	}

	seen := make(map[string]bool)
	for i, r := range c.Scoring.Rules {
		if err := r.validate(); err != nil {
			return fmt.Errorf("scoring.rules[%d]: %w", i, err)
		}
		if seen[r.ID] {
			return fmt.Errorf("scoring.rules[%d]: duplicate rule id %q", i, r.ID)
		}
		seen[r.ID] = true
	}

	return nil
}

func (r RuleConfig) validate() error {
	if r.ID == "" {
		return fmt.Errorf("id must not be empty")
	}
	if !contains(validRuleSeverities, r.Severity) {
		return fmt.Errorf("unknown severity %q (valid: error, warning)", r.Severity)
	}
	if r.Dependency == "" && r.Path == "" {
		return fmt.Errorf("rule %q must set dependency or path", r.ID)
	}
	if r.Dependency != "" && !doublestar.ValidatePattern(r.Dependency) {
		return fmt.Errorf("invalid dependency pattern %q", r.Dependency)
	}
	if r.Path != "" && !doublestar.ValidatePattern(r.Path) {
		return fmt.Errorf("invalid path pattern %q", r.Path)
	}
	if !contains(validDepChanges, r.DependencyChange) {
		return fmt.Errorf("unknown dependency_change %q", r.DependencyChange)
	}
	if !contains(validChangeTypes, r.ChangeType) {
		return fmt.Errorf("unknown change_type %q", r.ChangeType)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
