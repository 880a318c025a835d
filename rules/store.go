package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrMalformedStore reports that persisted rule data could not be decoded.
var ErrMalformedStore = errors.New("rules: malformed rule store")

// Store persists the ordered rule list. Load returns the full list; Save
// rewrites it in full. There is no incremental append: last writer wins.
type Store interface {
	Load() ([]Rule, error)
	Save(rules []Rule) error
}

// FileStore keeps the rule list as a JSON array in a single file. A missing
// file loads as an empty list.
type FileStore struct {
	path string
}

// NewFileStore returns a file store at path. The file and its directory are
// created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() ([]Rule, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Rule{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rules: reading %s failed: %w", s.path, err)
	}
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedStore, s.path, err)
	}
	return rules, nil
}

func (s *FileStore) Save(rules []Rule) error {
	if rules == nil {
		rules = []Rule{}
	}
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("rules: encoding rules failed: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("rules: creating %s failed: %w", dir, err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("rules: writing %s failed: %w", s.path, err)
	}
	return nil
}
