package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromPath_ValidConfig(t *testing.T) {
	path := writeConfig(t, `tool: sphinx
verbose: true
errors_only: true
share_state: true
state_dir: /tmp/dbf-state
filters:
  exclude_patterns:
    - "has no docstring"
    - "docs/generated/.*"
`)

	result, err := LoadFromPathWithWarnings(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}

	cfg := result.Config
	if cfg.Tool == nil || *cfg.Tool != "sphinx" {
		t.Errorf("tool did not load: %+v", cfg.Tool)
	}
	if cfg.Verbose == nil || !*cfg.Verbose {
		t.Error("verbose did not load")
	}
	if cfg.ErrorsOnly == nil || !*cfg.ErrorsOnly {
		t.Error("errors_only did not load")
	}
	if cfg.ShareState == nil || !*cfg.ShareState {
		t.Error("share_state did not load")
	}
	if cfg.StateDir == nil || *cfg.StateDir != "/tmp/dbf-state" {
		t.Error("state_dir did not load")
	}
	if len(cfg.Filters.ExcludePatterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(cfg.Filters.ExcludePatterns))
	}
	if cfg.Filters.ExcludePatterns[0] != "has no docstring" {
		t.Errorf("unexpected pattern: %q", cfg.Filters.ExcludePatterns[0])
	}
}

func TestLoadFromPath_FileNotFound(t *testing.T) {
	result, err := LoadFromPathWithWarnings(filepath.Join(t.TempDir(), ConfigFileName))
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if result.Config == nil {
		t.Fatal("expected non-nil config")
	}
	if result.Config.Tool != nil {
		t.Error("expected an empty config for a missing file")
	}
}

func TestLoadFromPath_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")

	result, err := LoadFromPathWithWarnings(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Config.Filters.ExcludePatterns) != 0 {
		t.Errorf("expected empty patterns, got: %v", result.Config.Filters.ExcludePatterns)
	}
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "tool: [unclosed\n")

	_, err := LoadFromPathWithWarnings(path)
	if err == nil {
		t.Fatal("expected an error for invalid YAML")
	}
	if !strings.Contains(err.Error(), ConfigFileName) {
		t.Errorf("error should name the config file: %v", err)
	}
}

func TestLoadFromPath_UnsupportedTool(t *testing.T) {
	path := writeConfig(t, "tool: jekyll\n")

	_, err := LoadFromPathWithWarnings(path)
	if err == nil {
		t.Fatal("expected an error for an unsupported tool")
	}
	if !strings.Contains(err.Error(), "jekyll") {
		t.Errorf("error should name the bad tool: %v", err)
	}
}

func TestLoadFromPath_InvalidPattern(t *testing.T) {
	path := writeConfig(t, `filters:
  exclude_patterns:
    - "[invalid"
`)

	_, err := LoadFromPathWithWarnings(path)
	if err == nil {
		t.Fatal("expected an error for an invalid regex")
	}
	if !strings.Contains(err.Error(), "[invalid") {
		t.Errorf("error should name the bad pattern: %v", err)
	}
}

func TestLoadFromPath_UnknownKeyWarning(t *testing.T) {
	path := writeConfig(t, "verbos: true\n")

	result, err := LoadFromPathWithWarnings(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], `"verbos"`) {
		t.Errorf("warning should name the unknown key: %q", result.Warnings[0])
	}
	if !strings.Contains(result.Warnings[0], `did you mean "verbose"`) {
		t.Errorf("warning should suggest the close key: %q", result.Warnings[0])
	}
}

func TestLoadFromPath_UnknownFilterKeyWarning(t *testing.T) {
	path := writeConfig(t, `filters:
  exclude_pattern:
    - "x"
`)

	result, err := LoadFromPathWithWarnings(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], "filters section") {
		t.Errorf("warning should point at the filters section: %q", result.Warnings[0])
	}
	if !strings.Contains(result.Warnings[0], `did you mean "exclude_patterns"`) {
		t.Errorf("warning should suggest the close key: %q", result.Warnings[0])
	}
}

func TestLoadFromDir_UsesConfigFileName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("tool: mkdocs\n"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := LoadFromDirWithWarnings(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Config.Tool == nil || *result.Config.Tool != "mkdocs" {
		t.Errorf("tool did not load from dir: %+v", result.Config.Tool)
	}
}

func TestResolve_Defaults(t *testing.T) {
	resolved := Resolve(nil, EnvState{}, FlagState{}, ResolvedConfig{})

	if resolved.Tool != "auto" {
		t.Errorf("Tool = %q, want %q", resolved.Tool, "auto")
	}
	if resolved.Verbose || resolved.ErrorsOnly || resolved.NoColor || resolved.NoProgress || resolved.ShareState {
		t.Errorf("expected all booleans off by default: %+v", resolved)
	}
	if resolved.StateDir != "" {
		t.Errorf("StateDir = %q, want empty", resolved.StateDir)
	}
}

func TestResolve_Precedence(t *testing.T) {
	fileTool := "mkdocs"
	fileVerbose := true
	fileErrorsOnly := false
	cfg := &Config{Tool: &fileTool, Verbose: &fileVerbose, ErrorsOnly: &fileErrorsOnly}

	envState := EnvState{
		Tool:          "sphinx",
		ToolSet:       true,
		ErrorsOnly:    true,
		ErrorsOnlySet: true,
	}
	flagState := FlagState{ToolSet: true}
	flagValues := ResolvedConfig{Tool: "auto"}

	resolved := Resolve(cfg, envState, flagState, flagValues)

	// flag > env > file
	if resolved.Tool != "auto" {
		t.Errorf("Tool = %q, want the flag value %q", resolved.Tool, "auto")
	}
	// env > file
	if !resolved.ErrorsOnly {
		t.Error("expected the env value to override the file value for errors_only")
	}
	// file > defaults
	if !resolved.Verbose {
		t.Error("expected the file value to survive for verbose")
	}
}

func TestResolve_FlagZeroValueWins(t *testing.T) {
	fileVerbose := true
	cfg := &Config{Verbose: &fileVerbose}

	// --verbose=false set explicitly must defeat verbose: true in the file.
	resolved := Resolve(cfg, EnvState{}, FlagState{VerboseSet: true}, ResolvedConfig{Verbose: false})
	if resolved.Verbose {
		t.Error("an explicitly set flag must win even with a zero value")
	}
}

func TestLoadEnvState(t *testing.T) {
	t.Setenv("DBF_TOOL", "sphinx")
	t.Setenv("DBF_VERBOSE", "1")
	t.Setenv("DBF_ERRORS_ONLY", "false")
	t.Setenv("DBF_SHARE_STATE", "true")
	t.Setenv("DBF_STATE_DIR", "/tmp/elsewhere")

	envState, warnings := LoadEnvState()

	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if !envState.ToolSet || envState.Tool != "sphinx" {
		t.Errorf("Tool = %+v", envState)
	}
	if !envState.VerboseSet || !envState.Verbose {
		t.Error("DBF_VERBOSE=1 should parse as true")
	}
	if !envState.ErrorsOnlySet || envState.ErrorsOnly {
		t.Error("DBF_ERRORS_ONLY=false should parse as set-but-false")
	}
	if !envState.ShareStateSet || !envState.ShareState {
		t.Error("DBF_SHARE_STATE=true should parse as true")
	}
	if !envState.StateDirSet || envState.StateDir != "/tmp/elsewhere" {
		t.Errorf("StateDir = %+v", envState)
	}
}

func TestLoadEnvState_BadBoolIgnored(t *testing.T) {
	t.Setenv("DBF_VERBOSE", "definitely")

	envState, warnings := LoadEnvState()
	if envState.VerboseSet {
		t.Error("an unparseable boolean should be ignored")
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "DBF_VERBOSE") {
		t.Errorf("expected a warning naming DBF_VERBOSE, got %v", warnings)
	}
}

func TestResolvedConfigValidateAll(t *testing.T) {
	if errs := (ResolvedConfig{Tool: "mkdocs"}).ValidateAll(); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if errs := (ResolvedConfig{Tool: "asciidoctor"}).ValidateAll(); len(errs) != 1 {
		t.Errorf("expected one error for an unknown tool, got %v", errs)
	}
}

func TestMerge(t *testing.T) {
	cfg := &Config{Filters: FilterConfig{ExcludePatterns: []string{"from config"}}}

	merged := Merge(cfg, []string{"from cli"})
	if len(merged) != 2 || merged[0] != "from config" || merged[1] != "from cli" {
		t.Errorf("unexpected merge result: %v", merged)
	}

	if got := Merge(nil, []string{"only cli"}); len(got) != 1 || got[0] != "only cli" {
		t.Errorf("unexpected merge result for nil config: %v", got)
	}
}
