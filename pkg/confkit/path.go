package confkit

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const maxRootWalkDepth = 8

// ProjectRoot locates the repository root by walking up from this source file
// until a directory carries go.mod or .git. It falls back to the working
// directory when the source location is unavailable, as it is in stripped
// binaries.
func ProjectRoot() (string, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		if root, found := walkToRoot(filepath.Dir(file)); found {
			return root, nil
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return ".", fmt.Errorf("getwd: %w", err)
	}
	return wd, nil
}

// MustProjectRoot is ProjectRoot for wiring paths at startup, panicking on
// failure.
func MustProjectRoot() string {
	root, err := ProjectRoot()
	if err != nil {
		panic(err)
	}
	return root
}

func walkToRoot(dir string) (string, bool) {
	for i := 0; i < maxRootWalkDepth; i++ {
		if isRootMarker(dir) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func isRootMarker(dir string) bool {
	for _, name := range []string{"go.mod", ".git"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
