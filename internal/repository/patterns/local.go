// Package patterns provides the two candidate sources for pattern matching:
// the local saved-query library on disk and configured external references
// fetched over HTTP. Both return a fresh snapshot on every call — candidate
// sets are small (tens to low hundreds) and re-reading buys staleness-freedom.
package patterns

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bcwatch/kqlbridge/internal/domain"
)

// savedQuery is the YAML document for one saved query file.
type savedQuery struct {
	Name     string   `yaml:"name"`
	Purpose  string   `yaml:"purpose"`
	UseCase  string   `yaml:"use_case"`
	Category string   `yaml:"category"`
	Tags     []string `yaml:"tags"`
	KQL      string   `yaml:"kql"`
}

// LocalProvider reads saved-query definitions from a directory tree.
// When a definition omits its category, the subdirectory name is used.
type LocalProvider struct {
	dir    string
	logger *zap.Logger
}

// NewLocalProvider creates a provider over the given saved-query directory.
func NewLocalProvider(dir string, logger *zap.Logger) *LocalProvider {
	return &LocalProvider{dir: dir, logger: logger}
}

// List returns a snapshot of all saved-query candidates. Files that fail to
// parse, or whose KQL is empty after trimming, are skipped with a warning —
// one bad file must not take the whole library offline.
func (p *LocalProvider) List(_ context.Context) ([]domain.Candidate, error) {
	var candidates []domain.Candidate

	err := filepath.WalkDir(p.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(path) {
			return nil
		}

		sq, err := p.readFile(path)
		if err != nil {
			p.logger.Warn("Skipping saved query", zap.String("path", path), zap.Error(err))
			return nil
		}

		candidates = append(candidates, domain.NewLocalCandidate(
			sq.Category, sq.Name, sq.Purpose, sq.UseCase, sq.KQL, sq.Tags,
		))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return candidates, fmt.Errorf("scan saved queries in %s: %w", p.dir, err)
	}

	return candidates, nil
}

func (p *LocalProvider) readFile(path string) (*savedQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var sq savedQuery
	if err := yaml.Unmarshal(data, &sq); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	if strings.TrimSpace(sq.KQL) == "" {
		return nil, fmt.Errorf("empty kql body")
	}
	if sq.Name == "" {
		sq.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if sq.Category == "" {
		sq.Category = p.categoryFromPath(path)
	}

	return &sq, nil
}

// categoryFromPath derives a category from the file's subdirectory under
// the library root, defaulting to "general" for files at the root itself.
func (p *LocalProvider) categoryFromPath(path string) string {
	rel, err := filepath.Rel(p.dir, path)
	if err != nil {
		return "general"
	}
	dir := filepath.Dir(rel)
	if dir == "." {
		return "general"
	}
	return strings.Split(filepath.ToSlash(dir), "/")[0]
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
