package cli

import (
	"io"
	"log/slog"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/infrastructure/autodetect"
	"github.com/linebyline/covgate/internal/infrastructure/config"
	"github.com/linebyline/covgate/internal/infrastructure/coverage"
	"github.com/linebyline/covgate/internal/infrastructure/diff"
	"github.com/linebyline/covgate/internal/infrastructure/github"
	"github.com/linebyline/covgate/internal/infrastructure/gitlab"
	"github.com/linebyline/covgate/internal/infrastructure/history"
	"github.com/linebyline/covgate/internal/infrastructure/report"
	"github.com/linebyline/covgate/internal/pathutil"
)

// backends builds the config dependent collaborators from the infrastructure
// packages.
type backends struct{}

var _ application.Backends = backends{}

func (backends) ChangeSource(cfg application.Config) application.ChangeSource {
	return diff.GitDiff{Dir: cfg.BaseDir}
}

func (backends) LineExtractor(cfg application.Config) (application.LineExtractor, error) {
	// An empty marker matches every line and so disables gating.
	return diff.NewExtractor(cfg.Diff.Mode, diff.WithMarker(diff.ContainsMarker(cfg.Diff.Marker)))
}

func (backends) CoverageOpener(cfg application.Config) application.CoverageOpener {
	return coverage.NewRegistry(cfg.Coverage.Format)
}

func (backends) HistoryStore(cfg application.Config) application.HistoryStore {
	path := cfg.History.Path
	if path == "" {
		path = application.DefaultHistoryPath
	}
	return history.NewFileStore(pathutil.Resolve(cfg.BaseDir, path))
}

// BuildService wires the production service writing reports to out.
func BuildService(out io.Writer) *application.Service {
	clients := make(map[application.PRProvider]application.PRClient)
	if gh, err := github.NewClient(""); err != nil {
		slog.Warn("GitHub client unavailable", "error", err)
	} else {
		clients[application.ProviderGitHub] = gh
	}
	if gl, err := gitlab.NewClient(""); err != nil {
		slog.Warn("GitLab client unavailable", "error", err)
	} else {
		clients[application.ProviderGitLab] = gl
	}

	return &application.Service{
		ConfigLoader: config.Loader{},
		Autodetector: autodetect.Detector{},
		Backends:     backends{},
		Reporter:     report.Writer{},
		PRClients:    clients,
		Out:          out,
	}
}
