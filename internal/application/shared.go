package application

import (
	"fmt"
	"os"
	"time"
)

// timeNow is replaced in tests.
var timeNow = time.Now

// loadOrDetectConfig loads config from path or auto-detects if not found.
func loadOrDetectConfig(loader ConfigLoader, detector Autodetector, configPath string) (Config, error) {
	exists, err := loader.Exists(configPath)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	switch {
	case exists:
		cfg, err = loader.Load(configPath)
	case detector != nil:
		cfg, err = detector.Detect()
	default:
		cfg = DefaultConfig()
	}
	if err != nil {
		return Config{}, err
	}

	if len(cfg.Rules) == 0 {
		return Config{}, fmt.Errorf("%w: no rules configured", ErrInvalidConfig)
	}
	return cfg, nil
}

// applyOverrides layers command line flags over the loaded configuration.
func applyOverrides(cfg Config, opts CheckOptions) Config {
	if opts.BaseRef != "" {
		cfg.BaseRef = opts.BaseRef
	}
	if opts.Report != "" {
		cfg.Coverage.Report = opts.Report
	}
	if opts.FailOnError != nil {
		cfg.FailOnError = *opts.FailOnError
	}
	if cfg.BaseRef == "" {
		cfg.BaseRef = DefaultBaseRef
	}
	return cfg
}

// detectProvider picks the hosting provider from CI environment variables.
func detectProvider() PRProvider {
	if os.Getenv("GITLAB_CI") != "" || os.Getenv("CI_MERGE_REQUEST_IID") != "" {
		return ProviderGitLab
	}
	if os.Getenv("GITHUB_ACTIONS") != "" || os.Getenv("GITHUB_REPOSITORY") != "" {
		return ProviderGitHub
	}
	if os.Getenv("GITLAB_TOKEN") != "" && os.Getenv("GITHUB_TOKEN") == "" {
		return ProviderGitLab
	}
	return ProviderGitHub
}
