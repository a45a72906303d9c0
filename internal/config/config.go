// Package config provides configuration file support for dbf.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/richhaase/docs-build-filter/internal/backend"
	"github.com/richhaase/docs-build-filter/internal/state"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = ".dbf.yaml"

// Config represents the dbf configuration file. Pointer fields distinguish
// "not set" from a zero value so the precedence cascade works.
type Config struct {
	Tool       *string      `yaml:"tool"`
	Verbose    *bool        `yaml:"verbose"`
	ErrorsOnly *bool        `yaml:"errors_only"`
	NoColor    *bool        `yaml:"no_color"`
	NoProgress *bool        `yaml:"no_progress"`
	ShareState *bool        `yaml:"share_state"`
	StateDir   *string      `yaml:"state_dir"`
	Filters    FilterConfig `yaml:"filters"`
}

// FilterConfig holds filter-related configuration.
type FilterConfig struct {
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

// LoadResult contains the loaded config and any warnings encountered.
type LoadResult struct {
	Config   *Config
	Warnings []string
}

// LoadWithWarnings reads .dbf.yaml from the project root (the enclosing git
// repository root, falling back to the working directory) and returns
// warnings. Returns an empty config (not an error) if the file doesn't
// exist.
func LoadWithWarnings() (*LoadResult, error) {
	return LoadFromDirWithWarnings(state.DefaultProjectDir())
}

// LoadFromDirWithWarnings reads .dbf.yaml from the specified directory and
// returns warnings. Returns an empty config (not an error) if the file
// doesn't exist.
func LoadFromDirWithWarnings(dir string) (*LoadResult, error) {
	return LoadFromPathWithWarnings(filepath.Join(dir, ConfigFileName))
}

// LoadFromPathWithWarnings reads a config file and returns warnings for
// unknown keys. Returns an empty config (not an error) if the file doesn't
// exist, and an error if the file exists but is invalid YAML, names an
// unsupported tool, or contains invalid regex patterns.
func LoadFromPathWithWarnings(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &LoadResult{Config: &Config{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	warnings := checkUnknownKeys(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigFileName, err)
	}

	if err := cfg.validatePatterns(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigFileName, err)
	}

	return &LoadResult{Config: &cfg, Warnings: warnings}, nil
}

// validatePatterns checks that all exclude patterns are valid regex.
func (c *Config) validatePatterns() error {
	for _, pattern := range c.Filters.ExcludePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid regex pattern %q in %s: %w", pattern, ConfigFileName, err)
		}
	}
	return nil
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	if c.Tool != nil {
		if _, err := backend.ParseTool(*c.Tool); err != nil {
			return err
		}
	}
	return nil
}

// knownTopLevelKeys are the valid top-level keys in the config file.
var knownTopLevelKeys = []string{"tool", "verbose", "errors_only", "no_color", "no_progress", "share_state", "state_dir", "filters"}

// knownFilterKeys are the valid keys under the "filters" section.
var knownFilterKeys = []string{"exclude_patterns"}

// checkUnknownKeys checks for unknown keys in the YAML data and returns warnings.
func checkUnknownKeys(data []byte) []string {
	var warnings []string

	// Parse into a generic map to inspect keys
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		// If we can't parse, let the main parser handle the error
		return nil
	}

	for key := range raw {
		if !slices.Contains(knownTopLevelKeys, key) {
			warning := fmt.Sprintf("unknown key %q in %s", key, ConfigFileName)
			if suggestion := findSimilar(key, knownTopLevelKeys); suggestion != "" {
				warning += fmt.Sprintf(" (did you mean %q?)", suggestion)
			}
			warnings = append(warnings, warning)
		}
	}

	if filters, ok := raw["filters"].(map[string]any); ok {
		for key := range filters {
			if !slices.Contains(knownFilterKeys, key) {
				warning := fmt.Sprintf("unknown key %q in filters section of %s", key, ConfigFileName)
				if suggestion := findSimilar(key, knownFilterKeys); suggestion != "" {
					warning += fmt.Sprintf(" (did you mean %q?)", suggestion)
				}
				warnings = append(warnings, warning)
			}
		}
	}

	return warnings
}

// findSimilar finds the most similar string from candidates using Levenshtein distance.
// Returns empty string if no candidate is similar enough (threshold: 3 edits).
func findSimilar(input string, candidates []string) string {
	const maxDistance = 3
	bestMatch := ""
	bestDistance := maxDistance + 1

	for _, candidate := range candidates {
		dist := levenshtein(input, candidate)
		if dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	if bestDistance <= maxDistance {
		return bestMatch
	}
	return ""
}

// levenshtein calculates the Levenshtein distance between two strings.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	matrix := make([][]int, len(ra)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(rb)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(ra)][len(rb)]
}

// Merge combines config file patterns with CLI patterns.
// CLI patterns are appended after config patterns (both are applied).
func Merge(cfg *Config, cliPatterns []string) []string {
	if cfg == nil {
		return cliPatterns
	}
	return append(cfg.Filters.ExcludePatterns, cliPatterns...)
}

// Defaults holds the built-in default values.
var Defaults = ResolvedConfig{
	Tool: "auto",
}

// ResolvedConfig holds the final resolved configuration values.
type ResolvedConfig struct {
	Tool       string
	Verbose    bool
	ErrorsOnly bool
	NoColor    bool
	NoProgress bool
	ShareState bool
	StateDir   string
}

// ValidateAll checks resolved values for semantic problems and returns
// one message per issue.
func (r ResolvedConfig) ValidateAll() []string {
	var errs []string
	if _, err := backend.ParseTool(r.Tool); err != nil {
		errs = append(errs, err.Error())
	}
	return errs
}

// FlagState tracks whether a flag was explicitly set.
type FlagState struct {
	ToolSet       bool
	VerboseSet    bool
	ErrorsOnlySet bool
	NoColorSet    bool
	NoProgressSet bool
	ShareStateSet bool
	StateDirSet   bool
}

// EnvState captures env var values and whether they were set.
type EnvState struct {
	Tool          string
	ToolSet       bool
	Verbose       bool
	VerboseSet    bool
	ErrorsOnly    bool
	ErrorsOnlySet bool
	NoColor       bool
	NoColorSet    bool
	NoProgress    bool
	NoProgressSet bool
	ShareState    bool
	ShareStateSet bool
	StateDir      string
	StateDirSet   bool
}

// LoadEnvState reads DBF_* environment variables and returns their state
// plus warnings for values that failed to parse. Unparseable values are
// treated as unset so the next precedence level applies.
func LoadEnvState() (EnvState, []string) {
	var envState EnvState
	var warnings []string

	parseBoolEnv := func(name string, value *bool, set *bool) {
		v := os.Getenv(name)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s=%q is not a boolean, ignoring", name, v))
			return
		}
		*value = b
		*set = true
	}

	if v := os.Getenv("DBF_TOOL"); v != "" {
		envState.Tool = v
		envState.ToolSet = true
	}
	parseBoolEnv("DBF_VERBOSE", &envState.Verbose, &envState.VerboseSet)
	parseBoolEnv("DBF_ERRORS_ONLY", &envState.ErrorsOnly, &envState.ErrorsOnlySet)
	parseBoolEnv("DBF_NO_COLOR", &envState.NoColor, &envState.NoColorSet)
	parseBoolEnv("DBF_NO_PROGRESS", &envState.NoProgress, &envState.NoProgressSet)
	parseBoolEnv("DBF_SHARE_STATE", &envState.ShareState, &envState.ShareStateSet)
	if v := os.Getenv("DBF_STATE_DIR"); v != "" {
		envState.StateDir = v
		envState.StateDirSet = true
	}

	return envState, warnings
}

// Resolve merges config file values with env vars and flags.
// Precedence: flags > env vars > config file > defaults
func Resolve(cfg *Config, envState EnvState, flagState FlagState, flagValues ResolvedConfig) ResolvedConfig {
	result := Defaults

	// Apply config file values (if set)
	if cfg != nil {
		if cfg.Tool != nil {
			result.Tool = *cfg.Tool
		}
		if cfg.Verbose != nil {
			result.Verbose = *cfg.Verbose
		}
		if cfg.ErrorsOnly != nil {
			result.ErrorsOnly = *cfg.ErrorsOnly
		}
		if cfg.NoColor != nil {
			result.NoColor = *cfg.NoColor
		}
		if cfg.NoProgress != nil {
			result.NoProgress = *cfg.NoProgress
		}
		if cfg.ShareState != nil {
			result.ShareState = *cfg.ShareState
		}
		if cfg.StateDir != nil {
			result.StateDir = *cfg.StateDir
		}
	}

	// Apply env var values (if set)
	if envState.ToolSet {
		result.Tool = envState.Tool
	}
	if envState.VerboseSet {
		result.Verbose = envState.Verbose
	}
	if envState.ErrorsOnlySet {
		result.ErrorsOnly = envState.ErrorsOnly
	}
	if envState.NoColorSet {
		result.NoColor = envState.NoColor
	}
	if envState.NoProgressSet {
		result.NoProgress = envState.NoProgress
	}
	if envState.ShareStateSet {
		result.ShareState = envState.ShareState
	}
	if envState.StateDirSet {
		result.StateDir = envState.StateDir
	}

	// Apply flag values (if explicitly set)
	if flagState.ToolSet {
		result.Tool = flagValues.Tool
	}
	if flagState.VerboseSet {
		result.Verbose = flagValues.Verbose
	}
	if flagState.ErrorsOnlySet {
		result.ErrorsOnly = flagValues.ErrorsOnly
	}
	if flagState.NoColorSet {
		result.NoColor = flagValues.NoColor
	}
	if flagState.NoProgressSet {
		result.NoProgress = flagValues.NoProgress
	}
	if flagState.ShareStateSet {
		result.ShareState = flagValues.ShareState
	}
	if flagState.StateDirSet {
		result.StateDir = flagValues.StateDir
	}

	return result
}
