// Package store persists analysis results as one JSON file per run.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modoturbo/repocompat/internal/domain"
)

const ext = ".json"

// FileStore implements domain.ResultStore under a directory. Results are
// written once and never overwritten.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

type Option func(*FileStore)

func WithLogger(l *slog.Logger) Option { return func(s *FileStore) { s.logger = l } }

func New(dir string, opts ...Option) *FileStore {
	s := &FileStore{dir: dir, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the directory results are written to.
func (s *FileStore) Dir() string { return s.dir }

// Save writes result to <dir>/<id>.json. An existing file with the same id
// is domain.ErrResultExists. A failed write leaves no file behind.
func (s *FileStore) Save(result *domain.AnalysisResult) error {
	if result == nil {
		return errors.New("nil analysis result")
	}
	if err := validID(result.ID); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating result directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result %s: %w", result.ID, err)
	}

	f, err := os.OpenFile(s.path(result.ID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("result %s: %w", result.ID, domain.ErrResultExists)
		}
		return fmt.Errorf("creating result %s: %w", result.ID, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("writing result %s: %w", result.ID, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("writing result %s: %w", result.ID, err)
	}
	return nil
}

// Get loads one result by id.
func (s *FileStore) Get(id string) (*domain.AnalysisResult, error) {
	if err := validID(id); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrResultNotFound)
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("result %s: %w", id, domain.ErrResultNotFound)
		}
		return nil, err
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding result %s: %w", id, err)
	}
	return &result, nil
}

// List returns stored results, newest first. A non-positive limit returns
// everything. A missing directory is an empty store. Entries that cannot be
// read or decoded are logged and left out.
func (s *FileStore) List(limit int) ([]domain.AnalysisResult, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var results []domain.AnalysisResult
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		r, err := s.Get(strings.TrimSuffix(e.Name(), ext))
		if err != nil {
			s.logger.Warn("skipping unreadable result", "file", e.Name(), "error", err)
			continue
		}
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID > results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+ext)
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid result id %q", id)
	}
	return nil
}
