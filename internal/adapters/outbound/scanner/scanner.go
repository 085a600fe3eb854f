package scanner

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/modoturbo/repocompat/internal/domain"
)

var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"coverage":     true,
	".next":        true,
	".turbo":       true,
	".cache":       true,
	"vendor":       true,
}

var sourceExts = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
}

var manifestNames = map[string]bool{
	"package.json":        true,
	"package-lock.json":   true,
	"npm-shrinkwrap.json": true,
	"yarn.lock":           true,
	"pnpm-lock.yaml":      true,
}

// maxConfigRead caps how much of a config file is parsed for keys.
const maxConfigRead = 256 * 1024

// FileScanner implements domain.SourceScanner by walking the filesystem.
type FileScanner struct{}

func New() *FileScanner {
	return &FileScanner{}
}

// Scan inventories rootPath. excludePaths are doublestar globs matched
// against slash-separated relative paths; a bare name also matches any
// directory with that name. Unreadable entries below the root are recorded
// in Skipped; only a failure on the root itself is returned.
func (s *FileScanner) Scan(rootPath string, excludePaths ...string) (*domain.ScanResult, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, err
	}

	result := &domain.ScanResult{
		RootPath:    absPath,
		SourceFiles: []string{},
		Files:       []domain.FileEntry{},
		Directories: []string{},
	}

	err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
		rel, _ := filepath.Rel(absPath, path)
		rel = filepath.ToSlash(rel)
		if err != nil {
			if rel == "." {
				return err
			}
			result.Skipped = append(result.Skipped, domain.SkippedFile{Path: rel, Reason: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if skipDirs[d.Name()] || excluded(rel, d.Name(), excludePaths) {
				return filepath.SkipDir
			}
			result.Directories = append(result.Directories, rel)
			return nil
		}
		if !d.Type().IsRegular() || excluded(rel, d.Name(), excludePaths) {
			return nil
		}

		kind, ok := Classify(rel)
		if !ok {
			return nil
		}
		entry, err := inventory(path, rel, kind)
		if err != nil {
			result.Skipped = append(result.Skipped, domain.SkippedFile{Path: rel, Reason: err.Error()})
			return nil
		}
		result.Files = append(result.Files, entry)
		if kind == domain.FileSource {
			result.SourceFiles = append(result.SourceFiles, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(result.SourceFiles)
	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Path < result.Files[j].Path })
	sort.Slice(result.Skipped, func(i, j int) bool { return result.Skipped[i].Path < result.Skipped[j].Path })
	return result, nil
}

// Classify decides how a slash-separated relative path is inventoried. The
// second result is false for files that are not inventoried at all.
func Classify(rel string) (domain.FileKind, bool) {
	name := filepath.Base(rel)
	ext := filepath.Ext(name)
	depth := strings.Count(rel, "/")

	switch {
	case manifestNames[name]:
		return domain.FileManifest, true
	case isConfigName(name, ext, depth):
		return domain.FileConfig, true
	case !sourceExts[ext]:
		return "", false
	case strings.HasSuffix(name, ".d.ts"):
		return domain.FileDeclaration, true
	case isTestPath(rel, name):
		return domain.FileTest, true
	default:
		return domain.FileSource, true
	}
}

func isConfigName(name, ext string, depth int) bool {
	stem := strings.TrimSuffix(name, ext)
	switch {
	case strings.HasPrefix(name, "tsconfig") && ext == ".json":
		return true
	case strings.HasSuffix(stem, ".config") && (ext == ".js" || ext == ".ts" || ext == ".mjs" || ext == ".cjs"):
		return true
	case strings.HasPrefix(name, ".eslintrc"), name == ".babelrc", strings.HasPrefix(name, ".env"):
		return true
	case ext == ".json" || ext == ".yml" || ext == ".yaml":
		return depth <= 1
	}
	return false
}

func isTestPath(rel, name string) bool {
	if strings.Contains(name, ".test.") || strings.Contains(name, ".spec.") {
		return true
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "__tests__" {
			return true
		}
	}
	return false
}

func excluded(rel, name string, patterns []string) bool {
	for _, p := range patterns {
		p = strings.TrimSuffix(p, "/")
		if p == name || p == rel {
			return true
		}
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func inventory(path, rel string, kind domain.FileKind) (domain.FileEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.FileEntry{}, err
	}
	defer f.Close()

	h := sha256.New()
	var head bytes.Buffer
	w := io.Writer(h)
	if kind == domain.FileConfig {
		w = io.MultiWriter(h, &limitedWriter{buf: &head, limit: maxConfigRead})
	}
	size, err := io.Copy(w, f)
	if err != nil {
		return domain.FileEntry{}, err
	}

	entry := domain.FileEntry{
		Path: rel,
		Kind: kind,
		Hash: hex.EncodeToString(h.Sum(nil)),
		Size: size,
	}
	if kind == domain.FileConfig {
		entry.ConfigKeys = ConfigKeys(filepath.Base(rel), head.Bytes())
	}
	return entry, nil
}

// ConfigKeys returns the sorted top-level keys of a JSON, YAML or dotenv
// config file. Unparseable content yields no keys.
func ConfigKeys(name string, data []byte) []string {
	var keys []string
	switch ext := filepath.Ext(name); {
	case strings.HasPrefix(name, ".env"):
		keys = envKeys(data)
	case ext == ".json" || name == ".babelrc":
		var m map[string]json.RawMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return yamlKeys(data)
		}
		for k := range m {
			keys = append(keys, k)
		}
	case ext == ".yml" || ext == ".yaml" || name == ".eslintrc":
		keys = yamlKeys(data)
	default:
		return nil
	}
	sort.Strings(keys)
	return keys
}

func yamlKeys(data []byte) []string {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func envKeys(data []byte) []string {
	var keys []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		if k, _, ok := strings.Cut(line, "="); ok {
			keys = append(keys, strings.TrimSpace(k))
		}
	}
	return keys
}

// limitedWriter keeps the first limit bytes and silently drops the rest.
type limitedWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if room := w.limit - w.buf.Len(); room > 0 {
		if len(p) > room {
			w.buf.Write(p[:room])
		} else {
			w.buf.Write(p)
		}
	}
	return len(p), nil
}
