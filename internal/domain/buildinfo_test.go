package domain

import "testing"

func TestBuildInfoMerge_LaterNonEmptyOverwrites(t *testing.T) {
	info := BuildInfo{ServerURL: "http://127.0.0.1:8000", BuildTime: "1.00"}

	info.Merge(BuildInfo{BuildTime: "2.50", BuildDir: "/tmp/site"})

	if info.ServerURL != "http://127.0.0.1:8000" {
		t.Errorf("server URL should survive merge, got %q", info.ServerURL)
	}
	if info.BuildTime != "2.50" {
		t.Errorf("build time = %q, want 2.50", info.BuildTime)
	}
	if info.BuildDir != "/tmp/site" {
		t.Errorf("build dir = %q, want /tmp/site", info.BuildDir)
	}
}

func TestBuildInfoMerge_EmptyNeverReverts(t *testing.T) {
	info := BuildInfo{ServerURL: "http://localhost:8000", WarningCount: 3}

	info.Merge(BuildInfo{})

	if info.ServerURL != "http://localhost:8000" {
		t.Errorf("empty merge cleared server URL: %q", info.ServerURL)
	}
	if info.WarningCount != 3 {
		t.Errorf("empty merge cleared warning count: %d", info.WarningCount)
	}
}

func TestBuildInfoEmpty(t *testing.T) {
	var info BuildInfo
	if !info.Empty() {
		t.Error("zero BuildInfo should be empty")
	}
	info.BuildTime = "0.5"
	if info.Empty() {
		t.Error("BuildInfo with a set field should not be empty")
	}
}

func TestInfoMessageDedup(t *testing.T) {
	msgs := []InfoMessage{
		{Category: CategoryBrokenLink, File: "index.md", Target: "missing.md"},
		{Category: CategoryBrokenLink, File: "index.md", Target: "missing.md"},
		{Category: CategoryBrokenLink, File: "index.md", Target: "other.md"},
	}

	result := DedupeInfoMessages(msgs)

	if len(result) != 2 {
		t.Fatalf("expected 2 unique notices, got %d", len(result))
	}
}

func TestGroupInfoMessages(t *testing.T) {
	msgs := []InfoMessage{
		{Category: CategoryBrokenLink, File: "a.md"},
		{Category: CategoryMissingNav, File: "b.md"},
		{Category: CategoryBrokenLink, File: "c.md"},
	}

	groups := GroupInfoMessages(msgs)

	if len(groups[CategoryBrokenLink]) != 2 {
		t.Errorf("broken_link group = %d entries, want 2", len(groups[CategoryBrokenLink]))
	}
	if groups[CategoryBrokenLink][0].File != "a.md" {
		t.Errorf("order within group not preserved: %q", groups[CategoryBrokenLink][0].File)
	}
	if len(groups[CategoryMissingNav]) != 1 {
		t.Errorf("missing_nav group = %d entries, want 1", len(groups[CategoryMissingNav]))
	}
}
