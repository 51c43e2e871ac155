package config

import (
	"fmt"
	"path/filepath"

	"papertrade-api/pkg/confkit"
	"papertrade-api/pkg/executor"
	"papertrade-api/pkg/llm"
	"papertrade-api/pkg/market"
	"papertrade-api/pkg/scheduler"
)

// MustLoadLLM loads etc/llm.yaml from the project root and panics on error.
func MustLoadLLM() *llm.Config {
	return mustLoadSection("llm.yaml", llm.LoadConfig)
}

// MustLoadExecutor loads etc/executor.yaml from the project root and panics on error.
func MustLoadExecutor() *executor.Config {
	return mustLoadSection("executor.yaml", executor.LoadConfig)
}

// MustLoadScheduler loads etc/scheduler.yaml from the project root and panics on error.
func MustLoadScheduler() *scheduler.Config {
	return mustLoadSection("scheduler.yaml", scheduler.LoadConfig)
}

// MustLoadMarket loads etc/market.yaml from the project root and panics on error.
func MustLoadMarket() *market.Config {
	return mustLoadSection("market.yaml", market.LoadConfig)
}

func mustLoadSection[T any](file string, loader func(string) (*T, error)) *T {
	path := filepath.Join(confkit.MustProjectRoot(), "etc", file)
	cfg, err := loader(path)
	if err != nil {
		panic(fmt.Errorf("load %s: %w", path, err))
	}
	return cfg
}
