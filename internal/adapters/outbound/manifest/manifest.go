// Package manifest reads package.json dependency manifests.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modoturbo/repocompat/internal/domain"
)

const fileName = "package.json"

// Reader implements domain.ManifestReader for package.json.
type Reader struct{}

func New() *Reader { return &Reader{} }

type packageJSON struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// ReadManifest loads dir/package.json. A missing file is domain.ErrManifestMissing.
// Optional dependencies count as runtime ones; peer dependencies are ignored.
func (r *Reader) ReadManifest(dir string) (*domain.Manifest, error) {
	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrManifestMissing)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(fileName, data)
}

// Parse decodes package.json content.
func Parse(path string, data []byte) (*domain.Manifest, error) {
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	m := &domain.Manifest{
		Path:            path,
		Name:            pkg.Name,
		Version:         pkg.Version,
		Dependencies:    make(map[string]string, len(pkg.Dependencies)+len(pkg.OptionalDependencies)),
		DevDependencies: make(map[string]string, len(pkg.DevDependencies)),
	}
	for name, v := range pkg.OptionalDependencies {
		m.Dependencies[name] = v
	}
	for name, v := range pkg.Dependencies {
		m.Dependencies[name] = v
	}
	for name, v := range pkg.DevDependencies {
		m.DevDependencies[name] = v
	}
	return m, nil
}
