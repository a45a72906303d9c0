package domain

// BuildInfo accumulates build metadata for one build cycle. BuildTime is the
// tool-reported elapsed time kept as free text so the tool's own precision
// is preserved. WarningCount is the tool's authoritative total, independent
// of how many unique issues were actually parsed.
type BuildInfo struct {
	ServerURL    string `json:"server_url,omitempty"`
	BuildDir     string `json:"build_dir,omitempty"`
	BuildTime    string `json:"build_time,omitempty"`
	WarningCount int    `json:"warning_count,omitempty"`
}

// Merge folds other into b. A set field is only replaced by a later
// non-empty value; nothing reverts to empty within a build cycle.
func (b *BuildInfo) Merge(other BuildInfo) {
	if other.ServerURL != "" {
		b.ServerURL = other.ServerURL
	}
	if other.BuildDir != "" {
		b.BuildDir = other.BuildDir
	}
	if other.BuildTime != "" {
		b.BuildTime = other.BuildTime
	}
	if other.WarningCount != 0 {
		b.WarningCount = other.WarningCount
	}
}

// Empty reports whether no metadata has been collected yet.
func (b *BuildInfo) Empty() bool {
	return b.ServerURL == "" && b.BuildDir == "" && b.BuildTime == "" && b.WarningCount == 0
}
