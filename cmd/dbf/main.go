// Package main provides the CLI entry point for the docs build filter.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/richhaase/docs-build-filter/internal/backend"
	"github.com/richhaase/docs-build-filter/internal/config"
	"github.com/richhaase/docs-build-filter/internal/domain"
	"github.com/richhaase/docs-build-filter/internal/filter"
	"github.com/richhaase/docs-build-filter/internal/remote"
	"github.com/richhaase/docs-build-filter/internal/runner"
	"github.com/richhaase/docs-build-filter/internal/state"
	"github.com/richhaase/docs-build-filter/internal/terminal"
)

var (
	toolName        string
	errorsOnly      bool
	verbose         bool
	noColor         bool
	noProgress      bool
	rawMode         bool
	batchMode       bool
	interactive     bool
	shareState      bool
	stateDir        string
	buildURL        string
	excludePatterns []string
	noConfig        bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := &cobra.Command{
		Use:   "dbf [flags] [-- command args...]",
		Short: "Filter mkdocs and sphinx build output down to what matters",
		Long: `Filter mkdocs and sphinx build output down to warnings and errors, with a summary report.

Reads build output from stdin, a wrapped command, or a URL:
  mkdocs serve 2>&1 | dbf
  dbf -- mkdocs serve
  dbf --url https://app.readthedocs.org/projects/myproj/builds/12345/

Exit codes:
  0 - No errors in the build output
  1 - Build errors found
  2 - Error
  130 - Interrupted`,
		Args:          cobra.ArbitraryArgs,
		RunE:          runFilter,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       buildVersionString(),
	}

	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Configuration flags (defaults are resolved via config.Resolve with precedence: flag > env > config > default)
	rootCmd.Flags().StringVarP(&toolName, "tool", "t", "",
		"Build tool whose output to parse: mkdocs, sphinx, auto (default: auto, env: DBF_TOOL)")
	rootCmd.Flags().BoolVarP(&errorsOnly, "errors-only", "e", false,
		"Show only error-severity issues (env: DBF_ERRORS_ONLY)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Show full code excerpts and captured tool output (env: DBF_VERBOSE)")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false,
		"Disable colored output (env: DBF_NO_COLOR or NO_COLOR)")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false,
		"Disable the progress spinner (env: DBF_NO_PROGRESS)")

	// Mode flags
	rootCmd.Flags().BoolVar(&rawMode, "raw", false,
		"Pass every line through unfiltered; the exit code and state snapshot still work")
	rootCmd.Flags().BoolVar(&batchMode, "batch", false,
		"Read all input before parsing instead of streaming incrementally")
	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"Full-screen session with a live issue list (keys: r=raw, f=filtered, e=errors-only, q=quit)")
	rootCmd.Flags().StringVar(&buildURL, "url", "",
		"Fetch and filter a build log from a URL (Read the Docs build pages supported)")

	// State sharing
	rootCmd.Flags().BoolVar(&shareState, "share-state", false,
		"Write build state snapshots for 'dbf status' and other tools (env: DBF_SHARE_STATE)")
	rootCmd.Flags().StringVar(&stateDir, "state-dir", "",
		"Directory for state snapshots (default: per-project temp dir, env: DBF_STATE_DIR)")

	// Filtering options
	rootCmd.Flags().StringArrayVar(&excludePatterns, "exclude-pattern", nil,
		"Hide issues matching regex pattern (repeatable)")
	rootCmd.Flags().BoolVar(&noConfig, "no-config", false,
		"Skip loading .dbf.yaml config file")

	setGroupedUsage(rootCmd)

	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		// Check if this is an exit code wrapper (not a real error)
		if exitErr, ok := err.(exitCodeError); ok {
			return exitErr.code.Int()
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return domain.ExitError.Int()
	}

	return 0
}

func runFilter(cmd *cobra.Command, args []string) error {
	// Disable colors if stdout is not a TTY
	if !terminal.IsStdoutTTY() || os.Getenv("NO_COLOR") != "" {
		terminal.DisableColors()
	}

	logger := terminal.NewLogger()

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr)
		logger.Log("Interrupted, shutting down...", terminal.StyleWarning)
		cancel()
	}()

	// The wrapped command is everything after --
	wrapArgv, err := wrapCommand(cmd, args)
	if err != nil {
		logger.Logf(terminal.StyleError, "%v", err)
		return exitCode(domain.ExitError)
	}

	// Load config file (unless --no-config)
	var cfg *config.Config
	if !noConfig {
		result, err := config.LoadWithWarnings()
		if err != nil {
			logger.Logf(terminal.StyleError, "Config error: %v", err)
			return exitCode(domain.ExitError)
		}
		cfg = result.Config
		// Display warnings for unknown keys
		for _, warning := range result.Warnings {
			logger.Logf(terminal.StyleWarning, "Warning: %s", warning)
		}
	}

	// Build flag state from cobra's Changed() method
	flagState := config.FlagState{
		ToolSet:       cmd.Flags().Changed("tool"),
		VerboseSet:    cmd.Flags().Changed("verbose"),
		ErrorsOnlySet: cmd.Flags().Changed("errors-only"),
		NoColorSet:    cmd.Flags().Changed("no-color"),
		NoProgressSet: cmd.Flags().Changed("no-progress"),
		ShareStateSet: cmd.Flags().Changed("share-state"),
		StateDirSet:   cmd.Flags().Changed("state-dir"),
	}

	// Load env var state
	envState, envWarnings := config.LoadEnvState()
	for _, warning := range envWarnings {
		logger.Logf(terminal.StyleWarning, "Warning: %s", warning)
	}

	// Build flag values struct
	flagValues := config.ResolvedConfig{
		Tool:       toolName,
		Verbose:    verbose,
		ErrorsOnly: errorsOnly,
		NoColor:    noColor,
		NoProgress: noProgress,
		ShareState: shareState,
		StateDir:   stateDir,
	}

	// Resolve final configuration (precedence: flags > env vars > config file > defaults)
	resolved := config.Resolve(cfg, envState, flagState, flagValues)

	if resolved.NoColor {
		terminal.DisableColors()
	}

	tool, err := backend.ParseTool(resolved.Tool)
	if err != nil {
		logger.Logf(terminal.StyleError, "%v", err)
		return exitCode(domain.ExitError)
	}

	// Validate mode combinations
	if buildURL != "" && len(wrapArgv) > 0 {
		logger.Log("--url and a wrapped command are mutually exclusive", terminal.StyleError)
		return exitCode(domain.ExitError)
	}
	if interactive && (buildURL != "" || len(wrapArgv) > 0) {
		logger.Log("--interactive reads piped input; run the build in another terminal", terminal.StyleError)
		return exitCode(domain.ExitError)
	}
	if len(wrapArgv) == 0 && buildURL == "" && terminal.IsStdinTTY() {
		logger.Log("no input: pipe build output in or pass a command after --", terminal.StyleError)
		logger.Log("example: mkdocs serve 2>&1 | dbf, or: dbf -- mkdocs serve", terminal.StyleDim)
		return exitCode(domain.ExitError)
	}

	// Merge exclude patterns (config patterns + CLI patterns)
	var exclude *filter.Filter
	if patterns := config.Merge(cfg, excludePatterns); len(patterns) > 0 {
		exclude, err = filter.New(patterns)
		if err != nil {
			logger.Logf(terminal.StyleError, "%v", err)
			return exitCode(domain.ExitError)
		}
	}

	var store *state.Store
	if resolved.ShareState {
		store = state.NewStore("", resolved.StateDir)
	}

	r := runner.New(runner.Config{
		Tool:         tool,
		ErrorsOnly:   resolved.ErrorsOnly,
		Verbose:      resolved.Verbose,
		Raw:          rawMode,
		ShowProgress: !resolved.NoProgress && !rawMode,
		Exclude:      exclude,
		Store:        store,
		Logger:       logger,
	})

	var outcome *runner.Outcome
	includeIssues := false

	switch {
	case len(wrapArgv) > 0:
		outcome, err = r.Wrap(ctx, wrapArgv)
	case buildURL != "":
		includeIssues = true
		outcome, err = runURL(ctx, r, buildURL, resolved.NoProgress)
	case interactive:
		includeIssues = true
		outcome, err = r.Interactive(ctx, os.Stdin)
	case batchMode:
		includeIssues = true
		outcome, err = r.Batch(ctx, os.Stdin)
	default:
		outcome, err = r.Stream(ctx, os.Stdin)
	}

	if ctx.Err() != nil {
		return exitCode(domain.ExitInterrupted)
	}
	if err != nil {
		logger.Logf(terminal.StyleError, "%v", err)
		return exitCode(domain.ExitError)
	}

	if !rawMode {
		report := runner.RenderReport(outcome, runner.ReportOptions{
			IncludeIssues: includeIssues,
			Verbose:       resolved.Verbose,
		})
		if report != "" {
			fmt.Fprintln(os.Stdout, report)
		}
	}

	return exitCode(outcome.ExitCode())
}

// wrapCommand extracts the build command following --. Positional args are
// only valid after the dash; anything before it is a mistake worth naming.
func wrapCommand(cmd *cobra.Command, args []string) ([]string, error) {
	dashAt := cmd.ArgsLenAtDash()
	if dashAt < 0 {
		if len(args) > 0 {
			return nil, fmt.Errorf("unexpected argument %q (build commands go after --)", args[0])
		}
		return nil, nil
	}
	if dashAt > 0 {
		return nil, fmt.Errorf("unexpected argument %q before --", args[0])
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("missing command after --")
	}
	return args, nil
}

// runURL fetches a remote build log and parses it in one batch pass.
func runURL(ctx context.Context, r *runner.Runner, url string, noProgress bool) (*runner.Outcome, error) {
	spinCtx, stopSpin := context.WithCancel(ctx)
	done := make(chan struct{})
	if !noProgress {
		spin := terminal.NewPhaseSpinner(fmt.Sprintf("Fetching %s", url))
		go func() {
			defer close(done)
			spin.Run(spinCtx)
		}()
	} else {
		close(done)
	}

	text, err := remote.Fetch(ctx, url)
	stopSpin()
	<-done
	if err != nil {
		return nil, err
	}

	return r.Batch(ctx, strings.NewReader(text))
}
