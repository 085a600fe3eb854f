package domain

import "errors"

var (
	ErrFileParse              = errors.New("file could not be parsed")
	ErrRepositoryInaccessible = errors.New("repository inaccessible")
	ErrManifestMissing        = errors.New("dependency manifest missing")
	ErrAuditUnavailable       = errors.New("vulnerability audit unavailable")
	ErrNotComparable          = errors.New("repositories not comparable")
	ErrConfigurationBootstrap = errors.New("configuration bootstrap failed")
	ErrTimeout                = errors.New("operation timed out")
	ErrResultNotFound         = errors.New("analysis result not found")
	ErrResultExists           = errors.New("analysis result already exists")
)
