// Package manifest records what a build copied and planned.
package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/pages"
	"git.home.luguber.info/inful/sitebuilder/internal/passthrough"
	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
)

// BuildManifest is the record of a single build.
type BuildManifest struct {
	ID         string    `yaml:"id"`
	Timestamp  time.Time `yaml:"timestamp"`
	Status     string    `yaml:"status"`
	DurationMS int64     `yaml:"duration_ms"`
	// Hash is ComputeHash at the time the manifest was written.
	Hash          string              `yaml:"hash,omitempty"`
	Settings      siteconfig.Settings `yaml:"settings"`
	Registrations Registrations       `yaml:"registrations"`
	Passthrough   passthrough.Result  `yaml:"passthrough"`
	Pages         []pages.Page        `yaml:"pages"`
}

// Registrations lists what the configuration registered.
type Registrations struct {
	Passthrough  map[string]string `yaml:"passthrough"`
	WatchTargets []string          `yaml:"watch_targets"`
	GlobalData   []string          `yaml:"global_data"`
}

// ToYAML serializes the manifest.
func (m *BuildManifest) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromYAML deserializes a manifest.
func FromYAML(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// ComputeHash returns a deterministic hash of the settings, registrations and page plan.
// Two builds with identical inputs hash the same regardless of id or timing.
func (m *BuildManifest) ComputeHash() (string, error) {
	hashInput := struct {
		Settings      siteconfig.Settings `json:"settings"`
		Registrations Registrations       `json:"registrations"`
		Pages         []pages.Page        `json:"pages"`
	}{m.Settings, m.Registrations, m.Pages}

	data, err := json.Marshal(hashInput)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// Save writes the manifest atomically, creating parent directories.
func (m *BuildManifest) Save(path string) error {
	data, err := m.ToYAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads a manifest written by Save.
func Load(path string) (*BuildManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Changes lists input paths that differ between two manifests.
type Changes struct {
	Added   []string
	Removed []string
	// Changed holds pages whose fingerprint or output path differ.
	Changed []string
}

// Empty reports whether no page changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// Diff compares the page plans of prev and next. A nil prev treats every page as added.
func Diff(prev, next *BuildManifest) Changes {
	before := map[string]pages.Page{}
	if prev != nil {
		for _, p := range prev.Pages {
			before[p.InputPath] = p
		}
	}
	var c Changes
	seen := make(map[string]struct{}, len(next.Pages))
	for _, p := range next.Pages {
		seen[p.InputPath] = struct{}{}
		old, ok := before[p.InputPath]
		switch {
		case !ok:
			c.Added = append(c.Added, p.InputPath)
		case old.Fingerprint != p.Fingerprint || old.OutputPath != p.OutputPath:
			c.Changed = append(c.Changed, p.InputPath)
		}
	}
	for in := range before {
		if _, ok := seen[in]; !ok {
			c.Removed = append(c.Removed, in)
		}
	}
	sort.Strings(c.Added)
	sort.Strings(c.Removed)
	sort.Strings(c.Changed)
	return c
}
