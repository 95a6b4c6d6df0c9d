package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), nil)
}

func TestSetGetRoundTrip(t *testing.T) {
	m := testManager(t)
	s, err := m.Open("com.example.notes")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := s.Set("font_size", 14); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set("theme", "dark"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set("sync", true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if got := s.GetInt("font_size", 0); got != 14 {
		t.Errorf("Expected 14, got %d", got)
	}
	if got := s.GetString("theme", ""); got != "dark" {
		t.Errorf("Expected 'dark', got '%s'", got)
	}
	if !s.GetBool("sync", false) {
		t.Error("Expected sync true")
	}
}

func TestTypedGettersFallBack(t *testing.T) {
	m := testManager(t)
	s, _ := m.Open("com.example.notes")
	s.Set("theme", "dark")

	if got := s.GetInt("theme", 7); got != 7 {
		t.Errorf("Mistyped read should fall back, got %d", got)
	}
	if got := s.GetString("missing", "default"); got != "default" {
		t.Errorf("Absent read should fall back, got '%s'", got)
	}
	if got := s.GetBool("theme", true); !got {
		t.Error("Mistyped bool read should fall back")
	}
	if got := s.GetFloat("missing", 1.5); got != 1.5 {
		t.Errorf("Absent float read should fall back, got %f", got)
	}
}

func TestValuesSurviveReload(t *testing.T) {
	dir := t.TempDir()

	m := NewManager(dir, nil)
	s, _ := m.Open("com.example.notes")
	if err := s.Set("volume", 80); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Numbers come back as float64 after a JSON round trip.
	fresh := NewManager(dir, nil)
	s2, _ := fresh.Open("com.example.notes")
	if got := s2.GetInt("volume", 0); got != 80 {
		t.Errorf("Expected 80 after reload, got %d", got)
	}
}

func TestDeleteAndClear(t *testing.T) {
	m := testManager(t)
	s, _ := m.Open("com.example.notes")
	s.Set("a", 1)
	s.Set("b", 2)

	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := s.Get("a"); ok {
		t.Error("Deleted key still present")
	}
	if err := s.Delete("a"); err != nil {
		t.Errorf("Deleting absent key should be a no-op, got %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty store, got %d keys", s.Len())
	}
}

func TestKeysSorted(t *testing.T) {
	m := testManager(t)
	s, _ := m.Open("com.example.notes")
	s.Set("zebra", 1)
	s.Set("alpha", 2)
	s.Set("mid", 3)

	keys := s.Keys()
	if len(keys) != 3 || keys[0] != "alpha" || keys[1] != "mid" || keys[2] != "zebra" {
		t.Errorf("Keys not sorted: %v", keys)
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "com.example.notes.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(dir, nil)
	s, _ := m.Open("com.example.notes")
	if s.Len() != 0 {
		t.Errorf("Corrupt store should read empty, got %d keys", s.Len())
	}

	// Writing again repairs the file.
	if err := s.Set("theme", "light"); err != nil {
		t.Fatalf("Set after corruption failed: %v", err)
	}
	fresh, _ := NewManager(dir, nil).Open("com.example.notes")
	if got := fresh.GetString("theme", ""); got != "light" {
		t.Errorf("Expected repaired store, got '%s'", got)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	m := testManager(t)
	a, _ := m.Open("com.example.a")
	b, _ := m.Open("com.example.b")

	a.Set("k", "from-a")
	b.Set("k", "from-b")

	if a.GetString("k", "") != "from-a" || b.GetString("k", "") != "from-b" {
		t.Error("Namespaces leaked into each other")
	}
}

func TestOpenRejectsPathTraversal(t *testing.T) {
	m := testManager(t)
	for _, ns := range []string{"", "../escape", "a/b", "/abs"} {
		if _, err := m.Open(ns); err == nil {
			t.Errorf("Expected namespace %q to be rejected", ns)
		}
	}
}

func TestNamespacesListing(t *testing.T) {
	m := testManager(t)
	s, _ := m.Open("system")
	s.Set("brightness", 50)
	m.Open("com.example.live") // opened but never written

	got := m.Namespaces()
	if len(got) != 2 || got[0] != "com.example.live" || got[1] != "system" {
		t.Errorf("Unexpected namespaces: %v", got)
	}
}

func TestDropRemovesFileAndStore(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)
	s, _ := m.Open("com.example.notes")
	s.Set("k", "v")

	if err := m.Drop("com.example.notes"); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "com.example.notes.json")); !os.IsNotExist(err) {
		t.Error("Backing file should be gone")
	}

	// A fresh open starts empty.
	s2, _ := m.Open("com.example.notes")
	if s2.Len() != 0 {
		t.Error("Dropped namespace should reopen empty")
	}
}
