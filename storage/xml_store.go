package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Store keeps raw booking documents on disk under
// <root>/xml/<propertyID>/<token>.xml. Writes are whole-file and atomic
// (temp file + rename), so concurrent writers for the same token cannot
// interleave; the last rename wins.
type Store struct {
	root string
}

// NewStore creates the store root directories.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "xml"), 0755); err != nil {
		return nil, fmt.Errorf("store: create %q: %w", root, err)
	}
	return &Store{root: root}, nil
}

// DocumentPath returns the deterministic path for a (property, token) pair.
func (s *Store) DocumentPath(propertyID, token int) string {
	return filepath.Join(s.root, "xml", strconv.Itoa(propertyID), strconv.Itoa(token)+".xml")
}

// SaveDocument writes one document, creating the property directory as
// needed.
func (s *Store) SaveDocument(propertyID, token int, body string) error {
	path := s.DocumentPath(propertyID, token)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("store: create dir for %d/%d: %w", propertyID, token, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: temp file for %d/%d: %w", propertyID, token, err)
	}
	if _, err := tmp.WriteString(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("store: write %d/%d: %w", propertyID, token, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: close %d/%d: %w", propertyID, token, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: rename %d/%d: %w", propertyID, token, err)
	}
	return nil
}

// ListDocuments returns the document paths of one property in lexicographic
// order, so aggregation enumerates them deterministically. A property with
// no directory simply has no documents.
func (s *Store) ListDocuments(propertyID int) []string {
	dir := filepath.Join(s.root, "xml", strconv.Itoa(propertyID))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".xml" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths
}

// ReadDocument reads one document body back.
func (s *Store) ReadDocument(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("store: read %q: %w", path, err)
	}
	return string(b), nil
}

// ReportsDir returns (and creates) the directory report artifacts go into.
func (s *Store) ReportsDir() (string, error) {
	dir := filepath.Join(s.root, "reports")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("store: create reports dir: %w", err)
	}
	return dir, nil
}

// Root returns the store root.
func (s *Store) Root() string {
	return s.root
}
