package store

import (
	"testing"
)

func TestSetGetDelete(t *testing.T) {
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	// Absent key
	_, ok, err := s.Get("missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected missing key to be absent")
	}

	// Set and read back
	if err := s.Set("theme", "dark"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := s.Get("theme")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || v != "dark" {
		t.Errorf("Expected dark, got %q (ok=%v)", v, ok)
	}

	// Overwrite
	if err := s.Set("theme", "light"); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}
	v, _, _ = s.Get("theme")
	if v != "light" {
		t.Errorf("Overwrite not persisted, got %q", v)
	}

	// Delete
	if err := s.Delete("theme"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	_, ok, _ = s.Get("theme")
	if ok {
		t.Error("Key still present after delete")
	}

	// Deleting an absent key is fine
	if err := s.Delete("theme"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func TestKeysByPrefix(t *testing.T) {
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	entries := map[string]string{
		"session_1_preferences":             "{}",
		"session_1_important_conversations": "[]",
		"session_2_preferences":             "{}",
		"conversationHistory":               "[]",
	}
	for k, v := range entries {
		if err := s.Set(k, v); err != nil {
			t.Fatalf("Set %s failed: %v", k, err)
		}
	}

	keys, err := s.Keys("session_1_")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Expected 2 keys, got %d: %v", len(keys), keys)
	}
	// Lexical order
	if keys[0] != "session_1_important_conversations" || keys[1] != "session_1_preferences" {
		t.Errorf("Unexpected key order: %v", keys)
	}

	all, err := s.Keys("")
	if err != nil {
		t.Fatalf("Keys(\"\") failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 keys, got %d", len(all))
	}
}

func TestKeysPrefixWildcardsLiteral(t *testing.T) {
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	// "_" and "%" in the prefix must match literally, not as LIKE wildcards.
	entries := []string{
		"session_1_preferences",
		"sessionX1Xpreferences",
		"100%_done",
		"100s_done",
	}
	for _, k := range entries {
		if err := s.Set(k, "{}"); err != nil {
			t.Fatalf("Set %s failed: %v", k, err)
		}
	}

	keys, err := s.Keys("session_1_")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "session_1_preferences" {
		t.Errorf("Underscore treated as wildcard: %v", keys)
	}

	keys, err = s.Keys("100%")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "100%_done" {
		t.Errorf("Percent treated as wildcard: %v", keys)
	}
}

func TestExportImport(t *testing.T) {
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if err := s.Set("sessionToken", "session_123_abc"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set("geminiApiKey", "QUJD"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	data, err := s.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Exported data is empty")
	}

	// Create a NEW store to simulate a fresh start/reload
	s2, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create second store: %v", err)
	}
	defer s2.Close()

	if err := s2.Import(data); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	v, ok, err := s2.Get("sessionToken")
	if err != nil {
		t.Fatalf("Get after import failed: %v", err)
	}
	if !ok || v != "session_123_abc" {
		t.Errorf("Expected session_123_abc, got %q (ok=%v)", v, ok)
	}
	if v, _, _ := s2.Get("geminiApiKey"); v != "QUJD" {
		t.Errorf("Expected QUJD, got %q", v)
	}
}

func TestImportReplacesExisting(t *testing.T) {
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if err := s.Set("stale", "value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Import([]byte(`{"fresh":"value"}`)); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if _, ok, _ := s.Get("stale"); ok {
		t.Error("Import should clear pre-existing entries")
	}
	if _, ok, _ := s.Get("fresh"); !ok {
		t.Error("Imported entry missing")
	}
}
