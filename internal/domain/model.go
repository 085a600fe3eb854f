package domain

import (
	"sort"
	"time"
)

// UnitKind classifies a parsed source file.
type UnitKind string

const (
	KindComponent UnitKind = "component"
	KindService   UnitKind = "service"
	KindUtility   UnitKind = "utility"
)

// FileKind describes an inventoried file. Source files that were extracted
// report their UnitKind instead.
type FileKind string

const (
	FileSource      FileKind = "source"
	FileTest        FileKind = "test"
	FileDeclaration FileKind = "declaration"
	FileConfig      FileKind = "config"
	FileManifest    FileKind = "manifest"
)

// Member is a named, typed slot: a component prop or a function parameter.
type Member struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required"`
}

// PatternMatch is one detected idiom with the confidence of the rule that fired.
type PatternMatch struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type ComponentInfo struct {
	Props        []Member `json:"props,omitempty"`
	BuiltinHooks []string `json:"builtin_hooks,omitempty"`
	CustomHooks  []string `json:"custom_hooks,omitempty"`
}

// HookCount returns the number of distinct hooks the component calls.
func (c ComponentInfo) HookCount() int { return len(c.BuiltinHooks) + len(c.CustomHooks) }

type MethodSignature struct {
	Name       string   `json:"name"`
	Parameters []Member `json:"parameters,omitempty"`
	ReturnType string   `json:"return_type,omitempty"`
	Async      bool     `json:"async"`
	Static     bool     `json:"static"`
	Visibility string   `json:"visibility"`
}

type ServiceInfo struct {
	ClassName    string            `json:"class_name,omitempty"`
	Methods      []MethodSignature `json:"methods,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty"`
}

// Purity classifies whether a utility function has observable side effects.
type Purity string

const (
	PurityPure    Purity = "pure"
	PurityImpure  Purity = "impure"
	PurityUnknown Purity = "unknown"
)

type FunctionInfo struct {
	Name       string   `json:"name"`
	Parameters []Member `json:"parameters,omitempty"`
	ReturnType string   `json:"return_type,omitempty"`
	Exported   bool     `json:"exported"`
	Purity     Purity   `json:"purity"`
	Complexity int      `json:"complexity"`
}

type UtilityInfo struct {
	Functions        []FunctionInfo `json:"functions,omitempty"`
	Constants        []string       `json:"constants,omitempty"`
	Types            []string       `json:"types,omitempty"`
	ReusabilityScore int            `json:"reusability_score"`
}

// SourceUnit holds the structural facts of one parsed file.
type SourceUnit struct {
	Path       string            `json:"path"`
	Name       string            `json:"name"`
	Kind       UnitKind          `json:"kind"`
	Exports    []string          `json:"exports,omitempty"`
	Imports    []string          `json:"imports,omitempty"`
	Component  *ComponentInfo    `json:"component,omitempty"`
	Service    *ServiceInfo      `json:"service,omitempty"`
	Utility    *UtilityInfo      `json:"utility,omitempty"`
	Patterns   []PatternMatch    `json:"patterns,omitempty"`
	Complexity ComplexityMetrics `json:"complexity"`
}

// FileEntry is one inventoried file of a snapshot.
type FileEntry struct {
	Path       string   `json:"path"`
	Kind       FileKind `json:"kind"`
	Hash       string   `json:"hash"`
	Size       int64    `json:"size"`
	ConfigKeys []string `json:"config_keys,omitempty"`
}

type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ProjectStructure is the structural model of one repository snapshot.
type ProjectStructure struct {
	RootPath    string        `json:"root_path"`
	Components  []SourceUnit  `json:"components"`
	Services    []SourceUnit  `json:"services"`
	Utilities   []SourceUnit  `json:"utilities"`
	Files       []FileEntry   `json:"files"`
	Directories []string      `json:"directories"`
	Skipped     []SkippedFile `json:"skipped,omitempty"`
}

// Units returns every unit of the structure ordered by path.
func (p *ProjectStructure) Units() []SourceUnit {
	if p == nil {
		return nil
	}
	units := make([]SourceUnit, 0, len(p.Components)+len(p.Services)+len(p.Utilities))
	units = append(units, p.Components...)
	units = append(units, p.Services...)
	units = append(units, p.Utilities...)
	sort.Slice(units, func(i, j int) bool { return units[i].Path < units[j].Path })
	return units
}

// UnitsByPath indexes the structure's units by relative path.
func (p *ProjectStructure) UnitsByPath() map[string]*SourceUnit {
	out := make(map[string]*SourceUnit)
	if p == nil {
		return out
	}
	for _, list := range [][]SourceUnit{p.Components, p.Services, p.Utilities} {
		for i := range list {
			out[list[i].Path] = &list[i]
		}
	}
	return out
}

// FilePaths returns the inventoried paths in order.
func (p *ProjectStructure) FilePaths() []string {
	if p == nil {
		return nil
	}
	paths := make([]string, 0, len(p.Files))
	for _, f := range p.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// ChangeType is the kind of a file-level change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// Impact grades how a change affects consumers.
type Impact string

const (
	ImpactBreaking Impact = "breaking"
	ImpactAdditive Impact = "additive"
	ImpactNeutral  Impact = "neutral"
)

type FileChange struct {
	Path       string     `json:"path"`
	ChangeType ChangeType `json:"change_type"`
	FileKind   string     `json:"file_kind"`
	Impact     Impact     `json:"impact"`
	Details    []string   `json:"details,omitempty"`
}

type ConfigChange struct {
	Path        string     `json:"path"`
	ChangeType  ChangeType `json:"change_type"`
	Impact      Impact     `json:"impact"`
	AddedKeys   []string   `json:"added_keys,omitempty"`
	RemovedKeys []string   `json:"removed_keys,omitempty"`
}

// ChangeSet is the file-level diff between two snapshots.
type ChangeSet struct {
	AddedFiles            []FileChange   `json:"added_files"`
	ModifiedFiles         []FileChange   `json:"modified_files"`
	DeletedFiles          []FileChange   `json:"deleted_files"`
	DependencyChangeHints []string       `json:"dependency_change_hints,omitempty"`
	ConfigChangeHints     []ConfigChange `json:"config_change_hints,omitempty"`
}

// IsEmpty reports whether no file was added, modified or deleted.
func (c ChangeSet) IsEmpty() bool {
	return len(c.AddedFiles) == 0 && len(c.ModifiedFiles) == 0 && len(c.DeletedFiles) == 0
}

// DependencyScope separates runtime from development dependencies.
type DependencyScope string

const (
	ScopeRuntime DependencyScope = "runtime"
	ScopeDev     DependencyScope = "dev"
)

type DependencyRecord struct {
	Name         string          `json:"name"`
	VersionRange string          `json:"version_range"`
	Scope        DependencyScope `json:"scope"`
}

// Manifest is a parsed dependency manifest.
type Manifest struct {
	Path            string            `json:"path"`
	Name            string            `json:"name,omitempty"`
	Version         string            `json:"version,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"dev_dependencies,omitempty"`
}

// Records flattens the manifest into records sorted by name. A name present
// in both maps is reported once, as runtime.
func (m *Manifest) Records() []DependencyRecord {
	if m == nil {
		return nil
	}
	var out []DependencyRecord
	for name, v := range m.Dependencies {
		out = append(out, DependencyRecord{Name: name, VersionRange: v, Scope: ScopeRuntime})
	}
	for name, v := range m.DevDependencies {
		if _, ok := m.Dependencies[name]; ok {
			continue
		}
		out = append(out, DependencyRecord{Name: name, VersionRange: v, Scope: ScopeDev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type DependencyUpdate struct {
	Name       string          `json:"name"`
	OldVersion string          `json:"old_version"`
	NewVersion string          `json:"new_version"`
	Scope      DependencyScope `json:"scope"`
	IsBreaking bool            `json:"is_breaking"`
	Direction  string          `json:"direction"`
}

// DependencyChangeSet partitions the union of two manifests' names.
type DependencyChangeSet struct {
	Added     []DependencyRecord `json:"added"`
	Removed   []DependencyRecord `json:"removed"`
	Updated   []DependencyUpdate `json:"updated"`
	Unchanged []DependencyRecord `json:"unchanged"`
}

// BreakingUpdates returns the updates flagged as breaking.
func (c DependencyChangeSet) BreakingUpdates() []DependencyUpdate {
	var out []DependencyUpdate
	for _, u := range c.Updated {
		if u.IsBreaking {
			out = append(out, u)
		}
	}
	return out
}

type DependencyTreeNode struct {
	Name         string               `json:"name"`
	Version      string               `json:"version"`
	Scope        DependencyScope      `json:"scope,omitempty"`
	Dependencies []DependencyTreeNode `json:"dependencies,omitempty"`
}

// Severity values of a vulnerability report.
const (
	VulnLow      = "low"
	VulnModerate = "moderate"
	VulnHigh     = "high"
	VulnCritical = "critical"
)

type VulnerabilityReport struct {
	Package         string `json:"package"`
	Version         string `json:"version"`
	Severity        string `json:"severity"`
	Title           string `json:"title"`
	PatchedVersions string `json:"patched_versions,omitempty"`
}

// DependencyInfo is the dependency inventory of one accessible repository.
type DependencyInfo struct {
	Records         []DependencyRecord    `json:"records"`
	Tree            []DependencyTreeNode  `json:"tree,omitempty"`
	Vulnerabilities []VulnerabilityReport `json:"vulnerabilities,omitempty"`
}

type EndpointParameter struct {
	Name     string `json:"name"`
	In       string `json:"in"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

type ResponseSchema struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
}

type AuthRequirement struct {
	Required bool   `json:"required"`
	Scheme   string `json:"scheme,omitempty"`
}

// EndpointDescriptor describes one API route exposed by a repository.
type EndpointDescriptor struct {
	Path       string              `json:"path"`
	Method     string              `json:"method"`
	Parameters []EndpointParameter `json:"parameters,omitempty"`
	Response   ResponseSchema      `json:"response"`
	Auth       AuthRequirement     `json:"auth"`
	Source     string              `json:"source,omitempty"`
}

// Key identifies an endpoint across snapshots.
func (e EndpointDescriptor) Key() string { return e.Method + " " + e.Path }

// Finding categories.
const (
	CategoryBreakingChange = "breaking-change"
	CategoryDeprecation    = "deprecation"
	CategoryDataFormat     = "data-format"
	CategoryAuthFlow       = "auth-flow"
)

type CompatibilityFinding struct {
	Category          string `json:"category"`
	Severity          string `json:"severity"`
	Endpoint          string `json:"endpoint,omitempty"`
	Description       string `json:"description"`
	MigrationGuidance string `json:"migration_guidance"`
}

// IsBreaking reports whether the finding breaks existing consumers.
func (f CompatibilityFinding) IsBreaking() bool { return f.Category != CategoryDeprecation }

type EndpointCompatibilityResult struct {
	Endpoint     string                 `json:"endpoint"`
	IsCompatible bool                   `json:"is_compatible"`
	RiskLevel    RiskLevel              `json:"risk_level"`
	Findings     []CompatibilityFinding `json:"findings,omitempty"`
}

type EndpointReport struct {
	BackwardCompatible   bool                          `json:"backward_compatible"`
	BreakingChanges      []CompatibilityFinding        `json:"breaking_changes,omitempty"`
	Deprecations         []CompatibilityFinding        `json:"deprecations,omitempty"`
	VersionCompatibility []string                      `json:"version_compatibility"`
	Results              []EndpointCompatibilityResult `json:"results,omitempty"`
}

// RiskLevel is the coarse risk bucket of a comparison.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Rank orders risk levels, low first.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// RepositoryDescriptor identifies a repository to analyze. The token is
// supplied by the caller and is never serialized.
type RepositoryDescriptor struct {
	Name        string `json:"name,omitempty"`
	URL         string `json:"url,omitempty"        validate:"required_without=LocalPath,omitempty,url"`
	Branch      string `json:"branch,omitempty"     validate:"omitempty,max=255"`
	LocalPath   string `json:"local_path,omitempty" validate:"required_without=URL"`
	AccessToken string `json:"-"`
}

// DisplayName returns a human readable identifier.
func (d RepositoryDescriptor) DisplayName() string {
	switch {
	case d.Name != "":
		return d.Name
	case d.URL != "":
		return d.URL
	default:
		return d.LocalPath
	}
}

type RepositoryResult struct {
	Name         string            `json:"name"`
	URL          string            `json:"url,omitempty"`
	LocalPath    string            `json:"local_path,omitempty"`
	Branch       string            `json:"branch,omitempty"`
	CommitRef    string            `json:"commit_ref,omitempty"`
	IsAccessible bool              `json:"is_accessible"`
	Error        string            `json:"error,omitempty"`
	Structure    *ProjectStructure `json:"structure,omitempty"`
	Dependencies *DependencyInfo   `json:"dependencies,omitempty"`
}

type DependencyComparison struct {
	Changes            DependencyChangeSet   `json:"changes"`
	NewVulnerabilities []VulnerabilityReport `json:"new_vulnerabilities,omitempty"`
}

// RuleViolation records a matched compatibility rule.
type RuleViolation struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type ComparisonResult struct {
	Base               string                 `json:"base"`
	Target             string                 `json:"target"`
	Comparable         bool                   `json:"comparable"`
	Changes            ChangeSet              `json:"changes"`
	Dependencies       *DependencyComparison  `json:"dependencies,omitempty"`
	Endpoints          *EndpointReport        `json:"endpoints,omitempty"`
	Findings           []CompatibilityFinding `json:"findings,omitempty"`
	RuleViolations     []RuleViolation        `json:"rule_violations,omitempty"`
	NewFeatures        []string               `json:"new_features,omitempty"`
	Improvements       []string               `json:"improvements,omitempty"`
	PotentialIssues    []string               `json:"potential_issues,omitempty"`
	Recommendations    []string               `json:"recommendations,omitempty"`
	CompatibilityScore int                    `json:"compatibility_score"`
	RiskLevel          RiskLevel              `json:"risk_level"`
}

// IssueCount is the number of negative signals used for risk classification.
func (c ComparisonResult) IssueCount() int {
	return len(c.PotentialIssues) + len(c.RuleViolations)
}

type AnalysisSummary struct {
	TotalRepositories      int       `json:"total_repositories"`
	AccessibleRepositories int       `json:"accessible_repositories"`
	TotalComparisons       int       `json:"total_comparisons"`
	AverageScore           float64   `json:"average_score"`
	LowestScore            int       `json:"lowest_score"`
	OverallRisk            RiskLevel `json:"overall_risk"`
	NewComponents          int       `json:"new_components"`
	NewServices            int       `json:"new_services"`
	NewUtilities           int       `json:"new_utilities"`
	BreakingChanges        int       `json:"breaking_changes"`
	RemovedDependencies    int       `json:"removed_dependencies"`
	Vulnerabilities        int       `json:"vulnerabilities"`
	RecommendedActions     []string  `json:"recommended_actions"`
}

// AnalysisResult is the immutable record of one run.
type AnalysisResult struct {
	ID            string             `json:"id"`
	CreatedAt     time.Time          `json:"created_at"`
	ConfigVersion int                `json:"config_version"`
	Repositories  []RepositoryResult `json:"repositories"`
	Comparisons   []ComparisonResult `json:"comparisons"`
	Summary       AnalysisSummary    `json:"summary"`
}

// AnalysisRequest names the base repository and the targets compared with it.
type AnalysisRequest struct {
	Base    RepositoryDescriptor   `json:"base"`
	Targets []RepositoryDescriptor `json:"targets"`
}
