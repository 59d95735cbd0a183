package cli

import (
	"context"
	"fmt"

	"github.com/glorpus-work/passd/internal/logger"
	"github.com/glorpus-work/passd/pkg/config"
	"github.com/glorpus-work/passd/pkg/gpg"
	"github.com/glorpus-work/passd/pkg/hooks"
	"github.com/glorpus-work/passd/pkg/index"
	"github.com/glorpus-work/passd/pkg/store"
)

// loadConfig loads the configuration file and the environment overrides and
// initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger.InitLogger(level)

	return cfg, nil
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// openStore builds the store described by the configuration.
func openStore() (*store.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	opts, err := cfg.Resolve()
	if err != nil {
		return nil, nil, err
	}

	options := []store.Option{store.WithLogger(logger.Component("store"))}
	if len(cfg.Hooks) > 0 {
		executor, err := hooks.LoadScripts(cfg.Hooks)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load hooks: %w", err)
		}
		options = append(options, store.WithHooks(executor))
	}

	return store.New(opts, gpg.NewExecRunner(cfg.GPGBinary), options...), cfg, nil
}

// withIndex opens the configured index for the duration of fn.
func withIndex(ctx context.Context, fn func(ctx context.Context, idx *index.Index) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx, err := index.Open(cfg.IndexPath)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()
	return fn(ctx, idx)
}
