package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/infrastructure/config"
	"github.com/linebyline/covgate/internal/infrastructure/watcher"
	mcpserver "github.com/linebyline/covgate/internal/mcp"
)

func (e *env) checkCommand() *cobra.Command {
	var (
		output      string
		report      string
		baseRef     string
		failOnError bool
		commit      string
		branch      string
		watch       bool
		clear       bool
		debounce    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate coverage rules on the changed lines",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = e.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		format, err := parseOutput(output)
		if err != nil {
			return err
		}
		opts := application.CheckOptions{
			ConfigPath: e.configPath,
			Output:     format,
			Report:     report,
			BaseRef:    baseRef,
			Commit:     commit,
			Branch:     branch,
		}
		if cmd.Flags().Changed("fail-on-error") {
			opts.FailOnError = &failOnError
		}
		if watch {
			return e.runWatch(ctx, application.WatchOptions{Check: opts, Clear: clear, Debounce: debounce})
		}
		return e.svc.Check(ctx, opts)
	})
	flags := cmd.Flags()
	flags.StringVarP(&output, "output", "o", string(application.OutputText), "Output format: text|json|brief|markdown")
	flags.StringVar(&report, "report", "", "Coverage report path (overrides config)")
	flags.StringVar(&baseRef, "base-ref", "", "Git ref to compare against (overrides config)")
	flags.BoolVar(&failOnError, "fail-on-error", false, "Fail rules whose coverage cannot be calculated (overrides config)")
	flags.StringVar(&commit, "commit", os.Getenv("GITHUB_SHA"), "Commit recorded in history")
	flags.StringVar(&branch, "branch", "", "Branch recorded in history")
	flags.BoolVarP(&watch, "watch", "w", false, "Re-run whenever the coverage report changes")
	flags.BoolVar(&clear, "clear", false, "Clear the terminal before each watch run")
	flags.DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period after a report change before re-running")
	return cmd
}

func (e *env) linesCommand() *cobra.Command {
	var baseRef string
	cmd := &cobra.Command{
		Use:   "lines",
		Short: "List the changed lines per file",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = e.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		return e.svc.Lines(ctx, application.LinesOptions{ConfigPath: e.configPath, BaseRef: baseRef})
	})
	cmd.Flags().StringVar(&baseRef, "base-ref", "", "Git ref to compare against (overrides config)")
	return cmd
}

func (e *env) initCommand() *cobra.Command {
	var force, noInteractive bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Autodetect settings and run the interactive wizard",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = e.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		cfg, err := e.svc.Detect(ctx)
		if err != nil {
			return err
		}
		if !noInteractive {
			var confirmed bool
			cfg, confirmed, err = initWizard(cfg, e.stdout, e.stdin)
			if err != nil {
				return fmt.Errorf("init wizard: %w", err)
			}
			if !confirmed {
				fmt.Fprintln(e.stdout, "Init cancelled; no configuration written.")
				return nil
			}
		}
		if err := writeConfigFile(e.configPath, cfg, e, force); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Config written to %s\n", e.configPath)
		return nil
	})
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Skip the interactive init wizard")
	return cmd
}

func (e *env) detectCommand() *cobra.Command {
	var writeConfig, force bool
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Print the autodetected config (use --write-config to save)",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = e.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		cfg, err := e.svc.Detect(ctx)
		if err != nil {
			return err
		}
		path := "-"
		if writeConfig {
			path = e.configPath
		}
		return writeConfigFile(path, cfg, e, force)
	})
	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "Write detected config to the config path")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite config if it exists")
	return cmd
}

func (e *env) historyCommand() *cobra.Command {
	var (
		limit  int
		since  time.Duration
		output string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded check verdicts",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = e.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		if output != string(application.OutputText) && output != string(application.OutputJSON) {
			return usagef("invalid output format: %s", output)
		}
		result, err := e.svc.History(ctx, application.HistoryOptions{ConfigPath: e.configPath, Limit: limit, Since: since})
		if err != nil {
			return err
		}
		if output == string(application.OutputJSON) {
			enc := json.NewEncoder(e.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printHistory(result, e)
		return nil
	})
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show (0 for all)")
	cmd.Flags().DurationVar(&since, "since", 0, "Only consider runs recorded within this window, e.g. 168h")
	cmd.Flags().StringVarP(&output, "output", "o", string(application.OutputText), "Output format: text|json")
	return cmd
}

func (e *env) commentCommand() *cobra.Command {
	var (
		provider  string
		prNumber  int
		owner     string
		repo      string
		projectID string
		update    bool
		dryRun    bool
		report    string
		baseRef   string
	)
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Post the report on a pull or merge request",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = e.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		p := application.PRProvider(strings.ToLower(provider))
		switch p {
		case application.ProviderAuto, application.ProviderGitHub, application.ProviderGitLab:
		default:
			return usagef("invalid provider: %s", provider)
		}
		if prNumber == 0 {
			prNumber = prNumberFromEnv()
		}
		if prNumber == 0 && !dryRun {
			return usagef("--pr is required outside of a pull request pipeline")
		}
		if owner == "" && repo == "" {
			owner, repo = repoFromEnv()
		}
		if projectID == "" {
			projectID = os.Getenv("CI_PROJECT_ID")
		}

		result, err := e.svc.Comment(ctx, application.PRCommentOptions{
			Check:          application.CheckOptions{ConfigPath: e.configPath, Report: report, BaseRef: baseRef},
			Provider:       p,
			PRNumber:       prNumber,
			Owner:          owner,
			Repo:           repo,
			ProjectID:      projectID,
			UpdateExisting: update,
			DryRun:         dryRun,
		})
		if err != nil {
			return err
		}
		switch {
		case dryRun:
			fmt.Fprint(e.stdout, result.CommentBody)
		case result.Created:
			fmt.Fprintf(e.stdout, "Created comment %d %s\n", result.CommentID, result.CommentURL)
		default:
			fmt.Fprintf(e.stdout, "Updated comment %d\n", result.CommentID)
		}
		if !result.Passed {
			return application.ErrRulesFailed
		}
		return nil
	})
	flags := cmd.Flags()
	flags.StringVar(&provider, "provider", string(application.ProviderAuto), "Git hosting provider: auto|github|gitlab")
	flags.IntVar(&prNumber, "pr", 0, "Pull or merge request number (detected in CI)")
	flags.StringVar(&owner, "owner", "", "Repository owner (detected from GITHUB_REPOSITORY)")
	flags.StringVar(&repo, "repo", "", "Repository name (detected from GITHUB_REPOSITORY)")
	flags.StringVar(&projectID, "project-id", "", "GitLab project ID or path (detected from CI_PROJECT_ID)")
	flags.BoolVar(&update, "update", true, "Update the existing covgate comment instead of adding one")
	flags.BoolVar(&dryRun, "dry-run", false, "Print the comment instead of posting it")
	flags.StringVar(&report, "report", "", "Coverage report path (overrides config)")
	flags.StringVar(&baseRef, "base-ref", "", "Git ref to compare against (overrides config)")
	return cmd
}

// serveMCP is replaced in tests.
var serveMCP = func(ctx context.Context, svc mcpserver.Service, configPath string) error {
	mcpserver.Version = Version
	return mcpserver.New(svc, mcpserver.Config{ConfigPath: configPath}).Run(ctx)
}

func (e *env) mcpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve covgate tools over the Model Context Protocol (stdio)",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = e.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := serveMCP(ctx, e.svc, e.configPath); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
	return cmd
}

func (e *env) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(e.stdout, versionString())
		},
	}
}

func parseOutput(value string) (application.OutputFormat, error) {
	switch f := application.OutputFormat(value); f {
	case application.OutputText, application.OutputJSON, application.OutputBrief, application.OutputMarkdown:
		return f, nil
	default:
		return "", usagef("invalid output format: %s", value)
	}
}

func writeConfigFile(path string, cfg application.Config, e *env, force bool) error {
	if path == "-" {
		return config.Write(e.stdout, cfg)
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return usagef("config %s already exists (use --force to overwrite)", path)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return config.Write(file, cfg)
}

func printHistory(result application.HistoryResult, e *env) {
	if result.Runs == 0 {
		fmt.Fprintln(e.stdout, "No runs recorded yet. Enable history in the config to record check verdicts.")
		return
	}
	fmt.Fprintf(e.stdout, "%-20s %-6s %-10s %-20s %s\n", "TIME", "STATUS", "COMMIT", "BASE", "FAILED RULES")
	for _, entry := range result.Entries {
		status := "PASS"
		if !entry.Passed {
			status = "FAIL"
		}
		var failed []string
		for _, r := range entry.Rules {
			if !r.Success {
				failed = append(failed, string(r.Kind))
			}
		}
		commit := entry.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		fmt.Fprintf(e.stdout, "%-20s %-6s %-10s %-20s %s\n",
			entry.Timestamp.Local().Format("2006-01-02 15:04:05"), status, commit, entry.BaseRef, strings.Join(failed, ", "))
	}
	fmt.Fprintf(e.stdout, "\n%d runs recorded, %.2f%% passed\n", result.Runs, result.PassRate)
}

// prNumberFromEnv reads the PR or MR number set by GitHub Actions or GitLab CI.
func prNumberFromEnv() int {
	if iid := os.Getenv("CI_MERGE_REQUEST_IID"); iid != "" {
		if n, err := strconv.Atoi(iid); err == nil {
			return n
		}
	}
	// refs/pull/<n>/merge
	ref := os.Getenv("GITHUB_REF")
	if rest, ok := strings.CutPrefix(ref, "refs/pull/"); ok {
		if n, err := strconv.Atoi(strings.SplitN(rest, "/", 2)[0]); err == nil {
			return n
		}
	}
	return 0
}

func repoFromEnv() (string, string) {
	owner, repo, ok := strings.Cut(os.Getenv("GITHUB_REPOSITORY"), "/")
	if !ok {
		return "", ""
	}
	return owner, repo
}

func (e *env) runWatch(ctx context.Context, opts application.WatchOptions) error {
	w, err := watcher.New(watcher.WithDebounce(opts.Debounce))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	// Handle Ctrl+C gracefully
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(e.stdout, "\nStopping watch mode...")
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintln(e.stdout, "Watching the coverage report for changes... (Ctrl+C to stop)")
	fmt.Fprintln(e.stdout, "")

	callback := func(runNumber int, runErr error) {
		if opts.Clear {
			fmt.Fprint(e.stdout, "\033[H\033[2J")
		}
		fmt.Fprintf(e.stdout, "\n--- Run #%d at %s ---\n", runNumber, time.Now().Format("15:04:05"))
		switch {
		case runErr == nil:
			fmt.Fprintln(e.stdout, "All coverage rules passed")
		case errors.Is(runErr, application.ErrRulesFailed):
			fmt.Fprintln(e.stdout, "Coverage rules failed")
		default:
			fmt.Fprintf(e.stderr, "Check failed: %v\n", runErr)
		}
	}

	if err := e.svc.Watch(ctx, opts, w, callback); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil // Normal exit on Ctrl+C
		}
		return fmt.Errorf("watch error: %w", err)
	}
	return nil
}
