package domain

import "context"

// SourceScanner walks a working copy and inventories the files worth analyzing.
type SourceScanner interface {
	Scan(rootPath string, excludePaths ...string) (*ScanResult, error)
}

// ScanResult holds the result of scanning a working copy.
type ScanResult struct {
	RootPath    string      `json:"root_path"`
	SourceFiles []string    `json:"source_files"`
	Files       []FileEntry `json:"files"`
	Directories []string    `json:"directories"`

	// Skipped lists entries below the root that could not be read.
	Skipped []SkippedFile `json:"skipped,omitempty"`
}

// UnitParser extracts a SourceUnit from one source file. relPath is relative
// to rootPath and is what the unit reports as its Path.
type UnitParser interface {
	ParseFile(ctx context.Context, rootPath, relPath string) (*SourceUnit, error)
}

// WorkingCopy is a materialized checkout of a remote repository.
type WorkingCopy struct {
	Path      string
	Branch    string
	CommitRef string
	Ephemeral bool
}

// WorkingCopyProvider materializes remote repositories and describes local ones.
type WorkingCopyProvider interface {
	Materialize(ctx context.Context, desc RepositoryDescriptor) (*WorkingCopy, error)
	Describe(path string) (branch, commitRef string, err error)
	Release(wc *WorkingCopy) error
}

// ManifestReader loads the dependency manifest of a working copy.
type ManifestReader interface {
	ReadManifest(dir string) (*Manifest, error)
}

// PackageManager is the narrow adapter over the host package manager.
type PackageManager interface {
	Tree(ctx context.Context, dir string) ([]DependencyTreeNode, error)
	Audit(ctx context.Context, dir string) ([]VulnerabilityReport, error)
}

// EndpointParser derives endpoint descriptors from a set of files.
type EndpointParser interface {
	ExtractEndpoints(ctx context.Context, rootPath string, files []string) ([]EndpointDescriptor, error)
}

// ResultStore persists analysis results. Save never overwrites.
type ResultStore interface {
	Save(result *AnalysisResult) error
	Get(id string) (*AnalysisResult, error)
	List(limit int) ([]AnalysisResult, error)
}

// ConfigLoader loads the run configuration.
type ConfigLoader interface {
	Load(path string) (RunConfig, error)
}
