// Package journal persists the progress of the last lifecycle cycle so that
// an interrupted cycle can be detected and reconciled by the next one.
package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/melih/redeploy/internal/core/domain"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// Store keeps one YAML document per container name under dir.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore returns a journal store rooted at dir on fs.
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, unsafeChars.ReplaceAllString(name, "_")+".yaml")
}

// Load returns the journal for name, or nil if none was recorded.
func (s *Store) Load(name string) (*domain.Journal, error) {
	data, err := afero.ReadFile(s.fs, s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	var j domain.Journal
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode journal %s: %w", s.path(name), err)
	}
	return &j, nil
}

// Save writes the journal atomically: a temp file is renamed over the old one.
func (s *Store) Save(j *domain.Journal) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}

	data, err := yaml.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}

	target := s.path(j.Container)
	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		return fmt.Errorf("replace journal: %w", err)
	}
	return nil
}
