package registry

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFile(t *testing.T) {
	entries, err := Load(filepath.Join(t.TempDir(), "index.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Load() = %v, want empty", entries)
	}
}

func TestUpsert_AddsAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	now := time.Now().UTC()

	if err := Upsert(path, SessionSummary{Session: "s1", Title: "first", LastUpdatedAt: now}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := Upsert(path, SessionSummary{Session: "s2", Title: "second", LastUpdatedAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	entries, err := List(path)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List() = %d entries, want 2", len(entries))
	}
	if entries[0].Session != "s2" {
		t.Errorf("entries[0].Session = %q, want s2 (newest first)", entries[0].Session)
	}

	if err := Upsert(path, SessionSummary{Session: "s1", Title: "first-updated", LastUpdatedAt: now.Add(2 * time.Minute)}); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}
	entries, err = List(path)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List() after replace = %d entries, want 2", len(entries))
	}
	if entries[0].Session != "s1" || entries[0].Title != "first-updated" {
		t.Errorf("entries[0] = %+v, want updated s1", entries[0])
	}
}

func TestGet_Found(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := Upsert(path, SessionSummary{Session: "s1", Title: "x"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	summary, ok, err := Get(path, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || summary.Title != "x" {
		t.Errorf("Get() = %+v, %v, want title x, true", summary, ok)
	}
}

func TestGet_NotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	_, ok, err := Get(path, "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Errorf("Get() ok = true, want false")
	}
}
