// Package confkit carries the config plumbing shared by every module: dotenv
// bootstrap, path resolution relative to the main config file, and hydration
// of per-module section files.
package confkit

import (
	"os"
	"path/filepath"
)

// ResolvePath expands environment references in file and resolves it against
// base. Absolute paths (after expansion) pass through untouched.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// BaseDir returns the directory holding the main config file; section files
// with relative paths resolve against it.
func BaseDir(mainPath string) string {
	return filepath.Dir(mainPath)
}

// Section points at an optional per-module config file. The main config
// declares only the file name; Hydrate fills Value from it.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate resolves the section's file against base and runs the module's own
// loader on it, recording the resolved path back into File. A section with no
// file stays empty; callers treat a nil Value as "module not configured".
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if s.File == "" {
		return nil
	}
	p := ResolvePath(base, s.File)
	v, err := loader(p)
	if err != nil {
		return err
	}
	s.File, s.Value = p, v
	return nil
}
