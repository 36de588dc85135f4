// Package store persists benchmark reports as JSON files. Writes are guarded
// with advisory file locks so concurrent jobs and external readers do not
// observe torn reports.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"github.com/llmpulse/llmpulse/internal/output"
)

const reportPrefix = "llmpulse-"

// Store keeps one JSON file per benchmark run under a results directory.
type Store struct {
	dir string
}

// New opens a store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the on-disk location for a run id.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, reportPrefix+id+".json")
}

// Save writes the report for a run id and returns the file path.
func (s *Store) Save(id string, report output.Report) (string, error) {
	path := s.Path(id)
	if err := WriteReport(path, report); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads the report stored for a run id.
func (s *Store) Load(id string) (output.Report, error) {
	return ReadReport(s.Path(id))
}

// List returns the run ids present in the store, sorted lexically. ULID ids
// sort chronologically, so this is also oldest-first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read store directory: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, reportPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, reportPrefix), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// WriteReport writes a report to an arbitrary path under an exclusive lock.
func WriteReport(path string, report output.Report) error {
	lock := flock.New(lockPath(path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock report file: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')

	// Write to a sibling temp file and rename so readers never see a
	// partially written report even without taking the lock.
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

// ReadReport reads a report from an arbitrary path under a shared lock.
func ReadReport(path string) (output.Report, error) {
	lock := flock.New(lockPath(path))
	if err := lock.RLock(); err != nil {
		return output.Report{}, fmt.Errorf("lock report file: %w", err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return output.Report{}, fmt.Errorf("read report: %w", err)
	}
	var report output.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return output.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return report, nil
}

func lockPath(path string) string {
	return path + ".lock"
}
