package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/changeset"
	"github.com/linebyline/covgate/internal/domain"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = ".covgate.yaml"

type Loader struct{}

type fileConfig struct {
	Version     int            `yaml:"version"`
	Coverage    fileCoverage   `yaml:"coverage"`
	SourceRoots []string       `yaml:"sourceRoots,omitempty"`
	BaseDir     string         `yaml:"baseDir,omitempty"`
	BaseRef     string         `yaml:"baseRef,omitempty"`
	FailOnError bool           `yaml:"failOnError"`
	Rules       []fileRule     `yaml:"rules"`
	Exclude     []string       `yaml:"exclude,omitempty"`
	Filters     changeset.Spec `yaml:"filters,omitempty"`
	Diff        fileDiff       `yaml:"diff,omitempty"`
	History     fileHistory    `yaml:"history,omitempty"`
	Log         fileLog        `yaml:"log,omitempty"`
}

type fileCoverage struct {
	Report     string `yaml:"report"`
	Format     string `yaml:"format,omitempty"`
	ClassesDir string `yaml:"classesDir,omitempty"`
	Extension  string `yaml:"extension,omitempty"`
}

type fileRule struct {
	Kind      string  `yaml:"kind"`
	Threshold float64 `yaml:"threshold"`
}

type fileDiff struct {
	Mode string `yaml:"mode,omitempty"`
	// Marker is a pointer so an explicit empty string can disable gating.
	Marker *string `yaml:"marker,omitempty"`
}

type fileHistory struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

type fileLog struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

func (l Loader) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (l Loader) Load(path string) (application.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return application.Config{}, err
	}
	cfg, err := Parse(raw)
	if err != nil {
		return application.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML config over application.DefaultConfig and validates it.
func Parse(raw []byte) (application.Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return application.Config{}, fmt.Errorf("%w: %w", application.ErrInvalidConfig, err)
	}

	cfg := application.DefaultConfig()
	switch fc.Version {
	case 0, 1:
	default:
		return application.Config{}, fmt.Errorf("%w: unsupported version %d", application.ErrInvalidConfig, fc.Version)
	}
	if fc.Coverage.Report != "" {
		cfg.Coverage.Report = filepath.Clean(fc.Coverage.Report)
	}
	if fc.Coverage.Format != "" {
		format, err := parseFormat(fc.Coverage.Format)
		if err != nil {
			return application.Config{}, err
		}
		cfg.Coverage.Format = format
	}
	cfg.Coverage.ClassesDir = fc.Coverage.ClassesDir
	if fc.Coverage.Extension != "" {
		cfg.Coverage.Extension = normalizeExtension(fc.Coverage.Extension)
	}
	if len(fc.SourceRoots) > 0 {
		cfg.SourceRoots = fc.SourceRoots
	}
	cfg.BaseDir = fc.BaseDir
	if fc.BaseRef != "" {
		cfg.BaseRef = fc.BaseRef
	}
	cfg.FailOnError = fc.FailOnError
	cfg.Exclude = fc.Exclude
	cfg.Filters = fc.Filters

	if fc.Rules != nil {
		rules, err := parseRules(fc.Rules)
		if err != nil {
			return application.Config{}, err
		}
		cfg.Rules = rules
	}

	if fc.Diff.Mode != "" {
		mode := strings.ToLower(fc.Diff.Mode)
		if mode != "hunk" && mode != "absolute" {
			return application.Config{}, fmt.Errorf("%w: diff.mode %q (want hunk or absolute)", application.ErrInvalidConfig, fc.Diff.Mode)
		}
		cfg.Diff.Mode = mode
	}
	if fc.Diff.Marker != nil {
		cfg.Diff.Marker = *fc.Diff.Marker
	}

	cfg.History.Enabled = fc.History.Enabled
	if fc.History.Path != "" {
		cfg.History.Path = fc.History.Path
	}

	if fc.Log.Level != "" {
		level := strings.ToLower(fc.Log.Level)
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return application.Config{}, fmt.Errorf("%w: log.level %q", application.ErrInvalidConfig, fc.Log.Level)
		}
		cfg.Log.Level = level
	}
	if fc.Log.Format != "" {
		format := strings.ToLower(fc.Log.Format)
		if format != "text" && format != "json" {
			return application.Config{}, fmt.Errorf("%w: log.format %q", application.ErrInvalidConfig, fc.Log.Format)
		}
		cfg.Log.Format = format
	}
	return cfg, nil
}

// parseRules builds rules in file order and rejects duplicate kinds.
func parseRules(in []fileRule) ([]domain.Rule, error) {
	registry, err := domain.NewRuleRegistry()
	if err != nil {
		return nil, err
	}
	for i, r := range in {
		kind, err := domain.ParseRuleKind(r.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: rules[%d]: %w", application.ErrInvalidConfig, i, err)
		}
		rule, err := domain.NewRule(kind, r.Threshold)
		if err != nil {
			return nil, fmt.Errorf("%w: rules[%d]: %w", application.ErrInvalidConfig, i, err)
		}
		if err := registry.Add(rule); err != nil {
			return nil, fmt.Errorf("%w: rules[%d]: %w", application.ErrInvalidConfig, i, err)
		}
	}
	return registry.Rules(), nil
}

func parseFormat(s string) (application.Format, error) {
	format := application.Format(strings.ToLower(s))
	switch format {
	case application.FormatAuto, application.FormatJaCoCo, application.FormatCobertura, application.FormatLCOV:
		return format, nil
	default:
		return "", fmt.Errorf("%w: coverage.format %q", application.ErrInvalidConfig, s)
	}
}

func normalizeExtension(ext string) string {
	if strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// Write encodes cfg as YAML in the layout Load reads.
func Write(w io.Writer, cfg application.Config) error {
	marker := cfg.Diff.Marker
	out := fileConfig{
		Version: cfg.Version,
		Coverage: fileCoverage{
			Report:     filepath.ToSlash(cfg.Coverage.Report),
			Format:     string(cfg.Coverage.Format),
			ClassesDir: cfg.Coverage.ClassesDir,
			Extension:  cfg.Coverage.Extension,
		},
		SourceRoots: cfg.SourceRoots,
		BaseDir:     cfg.BaseDir,
		BaseRef:     cfg.BaseRef,
		FailOnError: cfg.FailOnError,
		Rules:       make([]fileRule, 0, len(cfg.Rules)),
		Exclude:     cfg.Exclude,
		Filters:     cfg.Filters,
		Diff:        fileDiff{Mode: cfg.Diff.Mode, Marker: &marker},
		History:     fileHistory{Enabled: cfg.History.Enabled, Path: cfg.History.Path},
		Log:         fileLog{Level: cfg.Log.Level, Format: cfg.Log.Format},
	}
	if out.Version == 0 {
		out.Version = 1
	}
	for _, r := range cfg.Rules {
		out.Rules = append(out.Rules, fileRule{Kind: string(r.Kind()), Threshold: r.Threshold().Value()})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return enc.Encode(out)
}
