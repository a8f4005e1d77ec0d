// Package manifest loads and validates the distribution manifest YAML
// fed to build jobs, and can watch the manifest file on disk so the
// console picks up edits without reloading.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is a loaded distribution manifest. The backend treats the
// content as opaque; the console only checks it is well-formed YAML
// and surfaces a few identifying fields when present.
type Manifest struct {
	Path    string
	Content string

	Name    string
	Version string
}

// Load reads and validates the manifest file at path
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(path, string(data))
}

// Parse validates manifest content and extracts identifying fields
func Parse(path, content string) (*Manifest, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("manifest %s is empty", path)
	}

	var doc struct {
		Build struct {
			Name    string `yaml:"name"`
			Version string `yaml:"version"`
		} `yaml:"build"`
	}
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("manifest %s is not valid YAML: %w", path, err)
	}

	return &Manifest{
		Path:    path,
		Content: content,
		Name:    doc.Build.Name,
		Version: doc.Build.Version,
	}, nil
}
