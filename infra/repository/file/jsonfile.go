// Package file persists the hub state as JSON documents in a data
// directory: users.json, portfolios.json, rates.json and
// exchange_rates.json.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	UsersFile      = "users.json"
	PortfoliosFile = "portfolios.json"
	RatesFile      = "rates.json"
	HistoryFile    = "exchange_rates.json"
)

// jsonFile serializes access to one document. Writes go to a temp file in
// the same directory and are renamed over the target.
type jsonFile struct {
	mu   sync.Mutex
	path string
}

func newJSONFile(dir, name string) *jsonFile {
	return &jsonFile{path: filepath.Join(dir, name)}
}

// load decodes the document into v. A missing or empty file leaves v
// untouched.
func (f *jsonFile) load(v any) error {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", f.path, err)
	}
	return nil
}

func (f *jsonFile) store(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", f.path, err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

// update runs fn over the decoded document and stores the result, holding
// the file lock for the whole read-modify-write.
func update[T any](f *jsonFile, fn func(doc *T) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var doc T
	if err := f.load(&doc); err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	return f.store(&doc)
}

func read[T any](f *jsonFile) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var doc T
	err := f.load(&doc)
	return doc, err
}
