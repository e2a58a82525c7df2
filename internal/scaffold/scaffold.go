// Package scaffold creates an empty project tree from a Layout.
package scaffold

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsafePath is returned for layout entries that are absolute or
// escape the project directory.
var ErrUnsafePath = errors.New("scaffold: path escapes project directory")

// Dir is a directory and the files created inside it.
type Dir struct {
	Path  string   `yaml:"path"`
	Files []string `yaml:"files"`
}

// Layout describes a project tree rooted at Name.
type Layout struct {
	Name      string   `yaml:"name"`
	Dirs      []Dir    `yaml:"dirs"`
	RootFiles []string `yaml:"root_files"`
}

// DefaultLayout returns the Python package layout locopilot itself started from.
func DefaultLayout(name string) Layout {
	return Layout{
		Name: name,
		Dirs: []Dir{
			{Path: name, Files: []string{"__init__.py", "cli.py", "agent.py", "memory.py", "utils.py", "connection.py"}},
			{Path: "tests", Files: []string{"test_basic.py"}},
		},
		RootFiles: []string{"pyproject.toml", "README.md", "LICENSE", ".gitignore"},
	}
}

// LoadLayout reads a Layout from a YAML file.
func LoadLayout(path string) (Layout, error) {
	var l Layout
	data, err := os.ReadFile(path)
	if err != nil {
		return l, err
	}
	if err := yaml.Unmarshal(data, &l); err != nil {
		return l, fmt.Errorf("invalid layout %s: %w", path, err)
	}
	if l.Name == "" {
		l.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return l, nil
}

// Validate rejects empty names and entries that would land outside the
// project directory.
func (l Layout) Validate() error {
	if err := checkRel(l.Name); err != nil {
		return fmt.Errorf("name %q: %w", l.Name, err)
	}
	for _, d := range l.Dirs {
		if err := checkRel(d.Path); err != nil {
			return fmt.Errorf("dir %q: %w", d.Path, err)
		}
		for _, f := range d.Files {
			if err := checkRel(filepath.Join(d.Path, f)); err != nil {
				return fmt.Errorf("file %q: %w", f, err)
			}
		}
	}
	for _, f := range l.RootFiles {
		if err := checkRel(f); err != nil {
			return fmt.Errorf("root file %q: %w", f, err)
		}
	}
	return nil
}

func checkRel(p string) error {
	if p == "" {
		return errors.New("empty path")
	}
	if filepath.IsAbs(p) {
		return ErrUnsafePath
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return ErrUnsafePath
	}
	return nil
}

// Create builds the layout under base/<Name>. Existing files are left
// untouched. It returns the paths it created, directories included,
// in creation order.
func Create(base string, l Layout) ([]string, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	var created []string

	mkdir := func(dir string) error {
		if _, err := os.Stat(dir); err == nil {
			return nil
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		created = append(created, dir)
		return nil
	}
	touch := func(path string) error {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		if err != nil {
			return err
		}
		created = append(created, path)
		return f.Close()
	}

	root := filepath.Join(base, l.Name)
	if err := mkdir(root); err != nil {
		return created, fmt.Errorf("create %s: %w", root, err)
	}
	for _, d := range l.Dirs {
		dir := filepath.Join(root, d.Path)
		if err := mkdir(dir); err != nil {
			return created, fmt.Errorf("create %s: %w", dir, err)
		}
		for _, f := range d.Files {
			path := filepath.Join(dir, f)
			if err := mkdir(filepath.Dir(path)); err != nil {
				return created, fmt.Errorf("create %s: %w", path, err)
			}
			if err := touch(path); err != nil {
				return created, fmt.Errorf("create %s: %w", path, err)
			}
		}
	}
	for _, f := range l.RootFiles {
		path := filepath.Join(root, f)
		if err := mkdir(filepath.Dir(path)); err != nil {
			return created, fmt.Errorf("create %s: %w", path, err)
		}
		if err := touch(path); err != nil {
			return created, fmt.Errorf("create %s: %w", path, err)
		}
	}
	return created, nil
}
