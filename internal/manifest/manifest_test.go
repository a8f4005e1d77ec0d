package manifest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const sampleManifest = `---
schema-version: '1.1'
build:
  name: OpenSearch
  version: 3.0.0
components:
  - name: OpenSearch
    repository: https://github.com/opensearch-project/OpenSearch.git
    ref: tags/3.0.0
`

func TestParse(t *testing.T) {
	m, err := Parse("manifest.yml", sampleManifest)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Name != "OpenSearch" {
		t.Errorf("Name = %q, want OpenSearch", m.Name)
	}
	if m.Version != "3.0.0" {
		t.Errorf("Version = %q, want 3.0.0", m.Version)
	}
	if m.Content != sampleManifest {
		t.Error("Content should carry the raw manifest text")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t  "},
		{"bad yaml", "build: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse("manifest.yml", tt.content); err == nil {
				t.Errorf("Parse(%q) error = nil, want error", tt.content)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yml")
	if err := os.WriteFile(path, []byte(sampleManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Version != "3.0.0" {
		t.Errorf("Version = %q, want 3.0.0", m.Version)
	}

	if _, err := Load(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("Load() of missing file should error")
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yml")
	if err := os.WriteFile(path, []byte(sampleManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got *Manifest
	loaded := make(chan struct{}, 4)

	w, err := NewWatcher(path, func(m *Manifest, err error) {
		if err != nil {
			t.Errorf("reload error = %v", err)
			return
		}
		mu.Lock()
		got = m
		mu.Unlock()
		loaded <- struct{}{}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SetDebounce(50 * time.Millisecond)
	w.Start(context.Background())

	updated := []byte("build:\n  name: OpenSearch\n  version: 3.1.0\n")
	if err := os.WriteFile(path, updated, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-loaded:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never fired after write")
	}

	mu.Lock()
	defer mu.Unlock()
	if got.Version != "3.1.0" {
		t.Errorf("reloaded Version = %q, want 3.1.0", got.Version)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yml")
	if err := os.WriteFile(path, []byte(sampleManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	fired := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(m *Manifest, err error) {
		fired <- struct{}{}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SetDebounce(20 * time.Millisecond)
	w.Start(context.Background())

	if err := os.WriteFile(filepath.Join(dir, "other.yml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
		t.Error("watcher fired for an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}
