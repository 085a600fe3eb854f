package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/modoturbo/repocompat/internal/domain"
)

// FileName is the configuration file looked up in a directory.
const FileName = ".repocompat.yaml"

// YAMLLoader implements domain.ConfigLoader by reading .repocompat.yaml.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// Load reads the run configuration. path is either a directory holding
// .repocompat.yaml, in which case a missing file yields DefaultRunConfig, or
// an explicit file that must exist. All failures wrap
// domain.ErrConfigurationBootstrap.
func (l *YAMLLoader) Load(path string) (domain.RunConfig, error) {
	file, explicit, err := resolve(path)
	if err != nil {
		return domain.RunConfig{}, fmt.Errorf("%v: %w", err, domain.ErrConfigurationBootstrap)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return domain.DefaultRunConfig(), nil
		}
		return domain.RunConfig{}, fmt.Errorf("reading %s: %v: %w", file, err, domain.ErrConfigurationBootstrap)
	}

	cfg, err := Parse(data)
	if err != nil {
		return domain.RunConfig{}, fmt.Errorf("%s: %w", file, err)
	}
	return cfg, nil
}

// Parse decodes, validates and merges raw YAML over the defaults. Unknown
// keys are rejected so typos do not silently fall back to defaults.
func Parse(data []byte) (domain.RunConfig, error) {
	var cfg domain.RunConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return domain.RunConfig{}, fmt.Errorf("parsing %s: %v: %w", FileName, err, domain.ErrConfigurationBootstrap)
	}

	// Validate before merging so errors point at the user's raw input.
	if err := cfg.Validate(); err != nil {
		return domain.RunConfig{}, fmt.Errorf("invalid %s: %v: %w", FileName, err, domain.ErrConfigurationBootstrap)
	}
	return domain.MergeWithDefaults(cfg), nil
}

func resolve(path string) (file string, explicit bool, err error) {
	if path == "" {
		path = "."
	}
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(path, FileName), false, nil
	case err == nil:
		return path, true, nil
	case errors.Is(err, os.ErrNotExist):
		return "", true, fmt.Errorf("config %s does not exist", path)
	default:
		return "", true, err
	}
}
