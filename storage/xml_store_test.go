package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreDocumentPathLayout(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(root)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	got := store.DocumentPath(101, 555)
	want := filepath.Join(root, "xml", "101", "555.xml")
	if got != want {
		t.Errorf("DocumentPath: got %q, want %q", got, want)
	}
}

func TestStoreSaveAndReadDocument(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := store.SaveDocument(101, 555, "<doc>v1</doc>"); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	body, err := store.ReadDocument(store.DocumentPath(101, 555))
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if body != "<doc>v1</doc>" {
		t.Errorf("body: got %q", body)
	}
}

func TestStoreOverwriteIsLastWriteWins(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := store.SaveDocument(101, 555, "<doc>v1</doc>"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.SaveDocument(101, 555, "<doc>v2</doc>"); err != nil {
		t.Fatalf("second save: %v", err)
	}

	body, err := store.ReadDocument(store.DocumentPath(101, 555))
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if body != "<doc>v2</doc>" {
		t.Errorf("body after overwrite: got %q, want %q", body, "<doc>v2</doc>")
	}

	docs := store.ListDocuments(101)
	if len(docs) != 1 {
		t.Errorf("overwrite must not duplicate the document, got %d", len(docs))
	}
}

func TestStoreListDocumentsIsSorted(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	for _, token := range []int{30, 10, 20} {
		if err := store.SaveDocument(101, token, "<doc/>"); err != nil {
			t.Fatalf("SaveDocument(%d): %v", token, err)
		}
	}

	// Leftovers that are not documents must be ignored.
	propertyDir := filepath.Dir(store.DocumentPath(101, 10))
	if err := os.WriteFile(filepath.Join(propertyDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	docs := store.ListDocuments(101)
	want := []string{"10.xml", "20.xml", "30.xml"}
	if len(docs) != len(want) {
		t.Fatalf("documents: got %v, want %v", docs, want)
	}
	for i, path := range docs {
		if filepath.Base(path) != want[i] {
			t.Errorf("documents[%d]: got %q, want %q", i, filepath.Base(path), want[i])
		}
	}
}

func TestStoreListDocumentsMissingProperty(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if docs := store.ListDocuments(999); docs != nil {
		t.Errorf("expected nil for missing property, got %v", docs)
	}
}

func TestStoreReportsDir(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(root)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	dir, err := store.ReportsDir()
	if err != nil {
		t.Fatalf("ReportsDir: %v", err)
	}
	if dir != filepath.Join(root, "reports") {
		t.Errorf("reports dir: got %q", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("reports dir should exist, stat: %v", err)
	}
}
