package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/richhaase/docs-build-filter/internal/config"
	"github.com/richhaase/docs-build-filter/internal/state"
	"github.com/richhaase/docs-build-filter/internal/terminal"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage dbf configuration",
		Long:  "View, initialize, and validate dbf configuration files and environment variables.",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigValidateCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display resolved configuration",
		Long:  "Show the fully resolved configuration from defaults, config file, and environment variables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := config.LoadWithWarnings()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}

			envState, _ := config.LoadEnvState()

			resolved := config.Resolve(result.Config, envState, config.FlagState{}, config.Defaults)

			fmt.Println("Resolved configuration:")
			fmt.Println()
			fmt.Printf("  %-18s %s\n", "tool:", resolved.Tool)
			fmt.Printf("  %-18s %t\n", "verbose:", resolved.Verbose)
			fmt.Printf("  %-18s %t\n", "errors_only:", resolved.ErrorsOnly)
			fmt.Printf("  %-18s %t\n", "no_color:", resolved.NoColor)
			fmt.Printf("  %-18s %t\n", "no_progress:", resolved.NoProgress)
			fmt.Printf("  %-18s %t\n", "share_state:", resolved.ShareState)
			if resolved.StateDir != "" {
				fmt.Printf("  %-18s %s\n", "state_dir:", resolved.StateDir)
			} else {
				fmt.Printf("  %-18s %s\n", "state_dir:", "(per-project temp dir)")
			}
			if patterns := result.Config.Filters.ExcludePatterns; len(patterns) > 0 {
				fmt.Printf("  %-18s %s\n", "exclude_patterns:", strings.Join(patterns, ", "))
			}

			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a starter .dbf.yaml file",
		Long:  "Create a commented .dbf.yaml configuration file in the project root.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Write to the same location runtime loading reads from
			configPath := filepath.Join(state.DefaultProjectDir(), config.ConfigFileName)

			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("%s already exists; remove it first or edit it directly", configPath)
			}

			starter := `# dbf configuration file
# See https://github.com/richhaase/docs-build-filter for documentation.

# Build tool whose output to parse: mkdocs, sphinx, auto (default: auto)
# tool: auto

# Show full code excerpts and captured tool output (default: false)
# verbose: false

# Show only error-severity issues (default: false)
# errors_only: false

# Disable colored output (default: false)
# no_color: false

# Disable the progress spinner (default: false)
# no_progress: false

# Write build state snapshots for 'dbf status' (default: false)
# share_state: false

# Directory for state snapshots (default: per-project temp dir)
# state_dir: ""

# Filtering configuration
# filters:
#   exclude_patterns:
#     - "pattern to exclude"
`
			if err := os.WriteFile(configPath, []byte(starter), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", configPath, err)
			}

			fmt.Printf("Created %s with default settings (commented out).\n", configPath)
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and environment variables",
		Long:  "Load and validate the config file and environment variables, reporting any warnings or errors.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !terminal.IsStdoutTTY() {
				terminal.DisableColors()
			}
			logger := terminal.NewLogger()
			var errs []string
			var warnings []string

			// Load and validate config file (don't early-return so env var issues are also reported)
			cfg := &config.Config{}
			configFileError := false
			result, err := config.LoadWithWarnings()
			if err != nil {
				errs = append(errs, fmt.Sprintf("config file: %v", err))
				configFileError = true
			}
			if result != nil {
				cfg = result.Config
				warnings = append(warnings, result.Warnings...)
			}

			// At runtime an unparseable env var is a warning and the value is
			// ignored; in validation mode report it as an error so the user
			// fixes their environment.
			envState, envWarnings := config.LoadEnvState()
			errs = append(errs, envWarnings...)

			// Resolve and validate semantically. When the config file is
			// broken, resolve against defaults only so env-var issues still
			// surface without duplicating the file error.
			resolveConfig := cfg
			if configFileError {
				resolveConfig = &config.Config{}
			}
			resolved := config.Resolve(resolveConfig, envState, config.FlagState{}, config.Defaults)
			errs = append(errs, resolved.ValidateAll()...)

			for _, w := range warnings {
				logger.Logf(terminal.StyleWarning, "Config: %s", w)
			}
			for _, e := range errs {
				logger.Logf(terminal.StyleError, "%s", e)
			}

			if len(errs) > 0 {
				return fmt.Errorf("configuration has %d error(s)", len(errs))
			}

			if len(warnings) > 0 {
				logger.Log("Configuration is valid (with warnings).", terminal.StyleSuccess)
			} else {
				logger.Log("Configuration is valid.", terminal.StyleSuccess)
			}

			return nil
		},
	}
}
