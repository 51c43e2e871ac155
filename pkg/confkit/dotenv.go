package confkit

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads .env files into the process environment exactly once,
// no matter how many config loaders call it. Set NO_DOTENV=1 to skip, ENV_FILE
// to load a single explicit file, and DOTENV_OVERLOAD=1 to let .env values
// replace variables that are already set.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}

	load := godotenv.Load
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		load = godotenv.Overload
	}

	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = load(envFile)
		return
	}

	// Pick up a .env at every level between this file and the repository
	// root, nearest file winning, so tests running deep in the tree see the
	// same environment as the daemon.
	if _, file, _, ok := runtime.Caller(0); ok {
		dir := filepath.Dir(file)
		for i := 0; i < maxRootWalkDepth; i++ {
			_ = load(filepath.Join(dir, ".env"))
			if isRootMarker(dir) {
				return
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
		return
	}

	_ = load(".env")
}
