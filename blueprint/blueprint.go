// Package blueprint declares the boundary to blueprint resolution: named
// templates that expand into a partial VM description plus client-side
// post-actions, an external collaborator per §1/§6.
package blueprint

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Blueprint is a named template's expansion: defaults for the creation
// pipeline plus post-launch client actions.
type Blueprint struct {
	Name        string   `yaml:"name"`
	Image       string   `yaml:"image"`
	Cores       int      `yaml:"cores"`
	MemoryBytes int64    `yaml:"memory_bytes"`
	DiskBytes   int64    `yaml:"disk_bytes"`
	UserData    string   `yaml:"user_data"`
	Aliases     []string `yaml:"aliases"`
	Workspaces  []string `yaml:"workspaces"`
}

// Provider resolves a blueprint name (or a file://*.yaml path, per §4.5
// phase 4) into a Blueprint.
type Provider interface {
	Resolve(ctx context.Context, name string) (*Blueprint, error)
}

// FileProvider resolves blueprints from a directory of YAML files, and
// additionally honors the file://*.yaml form directly against the
// filesystem regardless of the directory, matching the creation pipeline's
// "possibly from a file://*.yaml path" phrasing.
type FileProvider struct {
	dir string
}

var _ Provider = (*FileProvider)(nil)

// NewFileProvider returns a Provider resolving names against YAML files
// under dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

// Resolve loads name.yaml from dir, or, if name has the file://*.yaml form,
// loads it directly from the given path.
func (p *FileProvider) Resolve(_ context.Context, name string) (*Blueprint, error) {
	path := name
	switch {
	case strings.HasPrefix(name, "file://"):
		path = strings.TrimPrefix(name, "file://")
	default:
		path = p.dir + "/" + name + ".yaml"
	}

	raw, err := os.ReadFile(path) //nolint:gosec // blueprint path from request or configured dir
	if err != nil {
		return nil, fmt.Errorf("read blueprint %s: %w", name, err)
	}

	var bp Blueprint
	if err := yaml.Unmarshal(raw, &bp); err != nil {
		return nil, fmt.Errorf("parse blueprint %s: %w", name, err)
	}
	if bp.Name == "" {
		bp.Name = name
	}
	return &bp, nil
}
