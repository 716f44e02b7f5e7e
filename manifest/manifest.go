// Package manifest handles icvm.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents an icvm.toml project configuration.
type Manifest struct {
	Program Program `toml:"program"`
	Server  Server  `toml:"server"`
	Journal Journal `toml:"journal"`

	// Dir is the directory containing the icvm.toml file (set at load time).
	Dir string `toml:"-"`
}

// Program configures what to execute and how.
type Program struct {
	Path      string  `toml:"path"`
	Inputs    []int64 `toml:"inputs"`
	StepLimit uint64  `toml:"step-limit"`
}

// Server configures the run service.
type Server struct {
	Listen string `toml:"listen"`
}

// Journal configures run journaling.
type Journal struct {
	Path string `toml:"path"`
}

// DefaultListen is the run service address used when the manifest leaves
// it unset.
const DefaultListen = ":4568"

// Load parses an icvm.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "icvm.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Server.Listen == "" {
		m.Server.Listen = DefaultListen
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an icvm.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", startDir, err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "icvm.toml")); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// ProgramPath resolves the configured program path relative to the
// manifest's directory.
func (m *Manifest) ProgramPath() string {
	if m.Program.Path == "" || filepath.IsAbs(m.Program.Path) {
		return m.Program.Path
	}
	return filepath.Join(m.Dir, m.Program.Path)
}

// JournalPath resolves the configured journal path relative to the
// manifest's directory.
func (m *Manifest) JournalPath() string {
	if m.Journal.Path == "" || filepath.IsAbs(m.Journal.Path) {
		return m.Journal.Path
	}
	return filepath.Join(m.Dir, m.Journal.Path)
}
