package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
	"github.com/linebyline/covgate/internal/infrastructure/config"
	"github.com/linebyline/covgate/internal/infrastructure/wizard"
	"github.com/linebyline/covgate/internal/logger"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1 // at least one rule failed
	exitUsage  = 2 // bad flags or invalid configuration
	exitFatal  = 3 // the run could not complete
)

type Service interface {
	Check(ctx context.Context, opts application.CheckOptions) error
	CheckResult(ctx context.Context, opts application.CheckOptions) (application.Result, application.Config, error)
	ChangedLines(ctx context.Context, opts application.LinesOptions) (domain.ChangedLineSet, error)
	Lines(ctx context.Context, opts application.LinesOptions) error
	Detect(ctx context.Context) (application.Config, error)
	History(ctx context.Context, opts application.HistoryOptions) (application.HistoryResult, error)
	Comment(ctx context.Context, opts application.PRCommentOptions) (application.PRCommentResult, error)
	Watch(ctx context.Context, opts application.WatchOptions, watcher application.FileWatcher, callback application.WatchCallback) error
}

var initWizard = wizard.Run

// env holds what every command needs from Run.
type env struct {
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
	svc    Service

	configPath string
	logLevel   string
	logFormat  string

	// runErr is the error returned by a command body, as opposed to a
	// flag or argument error raised by cobra before the body runs.
	runErr error
}

// Run executes the command line args (args[0] is the program name) and
// returns the process exit code.
func Run(args []string, stdout, stderr io.Writer, svc Service) int {
	if len(args) < 2 {
		usage(stderr)
		return exitUsage
	}

	e := &env{stdout: stdout, stderr: stderr, stdin: os.Stdin, svc: svc}
	root := e.rootCommand()
	root.SetArgs(args[1:])
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err != nil && e.runErr == nil {
		fmt.Fprintln(stderr, err)
		fmt.Fprintln(stderr, "Run 'covgate --help' for usage.")
		return exitUsage
	}
	return exitCode(e.runErr, stderr)
}

func (e *env) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "covgate",
		Short: "Gate a change on the test coverage of its changed lines",
		Long: `covgate correlates the lines changed against a baseline git ref with the
coverage report of the last test run and checks them against configured
thresholds.

Exit codes:
  0 - all rules passed
  1 - at least one rule failed
  2 - usage or configuration error
  3 - the diff or coverage report could not be read`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			e.setupLogging()
		},
	}
	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", config.DefaultPath, "Config file path")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	root.PersistentFlags().StringVar(&e.logFormat, "log-format", "", "Log format: text|json (overrides config)")

	root.AddCommand(
		e.checkCommand(),
		e.linesCommand(),
		e.initCommand(),
		e.detectCommand(),
		e.historyCommand(),
		e.commentCommand(),
		e.mcpCommand(),
		e.versionCommand(),
	)
	return root
}

// run adapts a command body so its error is kept apart from cobra's own
// usage errors.
func (e *env) run(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e.runErr = fn(cmd.Context(), cmd, args)
		return e.runErr
	}
}

// setupLogging reads the log section of the config file, when present, and
// applies the flag overrides. Config errors are left for the command to report.
func (e *env) setupLogging() {
	logCfg := application.DefaultConfig().Log
	loader := config.Loader{}
	if ok, _ := loader.Exists(e.configPath); ok {
		if cfg, err := loader.Load(e.configPath); err == nil {
			logCfg = cfg.Log
		}
	}
	if e.logLevel != "" {
		logCfg.Level = e.logLevel
	}
	if e.logFormat != "" {
		logCfg.Format = e.logFormat
	}
	logger.SetupWriter(e.stderr, logCfg)
}

// usageError marks errors in how the command was invoked.
type usageError struct{ msg string }

func (u usageError) Error() string { return u.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// exitCode maps a command error to the process exit code. A failed rule has
// already been reported, so nothing more is printed for it.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, application.ErrRulesFailed) {
		return exitFailed
	}
	fmt.Fprintln(stderr, err)

	var ue usageError
	switch {
	case errors.As(err, &ue),
		errors.Is(err, application.ErrInvalidConfig),
		errors.Is(err, domain.ErrInvalidThreshold),
		errors.Is(err, domain.ErrDuplicateRuleKind),
		errors.Is(err, domain.ErrUnknownRuleKind),
		errors.Is(err, domain.ErrNilRule):
		return exitUsage
	default:
		return exitFatal
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `covgate <command>

Commands:
  check    Evaluate coverage rules on the changed lines
  lines    List the changed lines per file
  init     Autodetect settings and run the interactive wizard
  detect   Print the autodetected config (use --write-config to save)
  history  Show recorded check verdicts
  comment  Post the report on a pull or merge request
  mcp      Serve covgate tools over the Model Context Protocol
  version  Print version information`)
}
