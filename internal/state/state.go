// Package state persists build snapshots so other terminals and tools can
// inspect the most recent build without re-running it.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/richhaase/docs-build-filter/internal/domain"
)

// Build status values recorded in a snapshot.
const (
	StatusBuilding = "building"
	StatusComplete = "complete"
)

const (
	stateNamespace = "docs-build-filter"
	snapshotFile   = "state.json"

	// rawTailLimit bounds how much raw output a snapshot carries.
	rawTailLimit = 500
)

// Snapshot is one persisted build state record.
type Snapshot struct {
	Issues       []domain.Issue       `json:"issues"`
	InfoMessages []domain.InfoMessage `json:"info_messages"`
	BuildInfo    domain.BuildInfo     `json:"build_info"`
	// RawOutput is the tail of the unfiltered build output.
	RawOutput  []string  `json:"raw_output"`
	Timestamp  time.Time `json:"timestamp"`
	ProjectDir string    `json:"project_dir,omitempty"`
	// BuildStatus is StatusBuilding while a build is in flight and
	// StatusComplete once a completion boundary was seen.
	BuildStatus    string    `json:"build_status"`
	BuildStartedAt time.Time `json:"build_started_at,omitzero"`
}

// Age returns how long ago the snapshot was written.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.Timestamp)
}

// Store reads and writes the snapshot for one project. By default the
// snapshot lives under the system temp directory, keyed by a hash of the
// project path so concurrent builds of different projects never collide.
type Store struct {
	path       string
	projectDir string
}

// NewStore returns a store for the given project directory. An empty
// projectDir selects the enclosing git repository root, falling back to the
// working directory. A non-empty stateDir overrides the default snapshot
// location.
func NewStore(projectDir, stateDir string) *Store {
	if projectDir == "" {
		projectDir = DefaultProjectDir()
	}
	if abs, err := filepath.Abs(projectDir); err == nil {
		projectDir = abs
	}
	dir := stateDir
	if dir == "" {
		dir = defaultSnapshotDir(projectDir)
	}
	return &Store{
		path:       filepath.Join(dir, snapshotFile),
		projectDir: projectDir,
	}
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// Write persists the snapshot atomically. The timestamp and project
// directory are stamped here; callers fill only the build fields.
func (s *Store) Write(snap *Snapshot) error {
	snap.Timestamp = time.Now()
	snap.ProjectDir = s.projectDir
	if snap.Issues == nil {
		snap.Issues = []domain.Issue{}
	}
	if snap.InfoMessages == nil {
		snap.InfoMessages = []domain.InfoMessage{}
	}
	if snap.RawOutput == nil {
		snap.RawOutput = []string{}
	}
	if len(snap.RawOutput) > rawTailLimit {
		snap.RawOutput = snap.RawOutput[len(snap.RawOutput)-rawTailLimit:]
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Stage in a temp file so readers never see a partial snapshot.
	tmp, err := os.CreateTemp(dir, "state-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Read loads the store's snapshot.
func (s *Store) Read() (*Snapshot, error) {
	return ReadSnapshot(s.path)
}

// ReadSnapshot loads a snapshot from an explicit path.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no state file at %s", path)
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return &snap, nil
}

func defaultSnapshotDir(projectDir string) string {
	sum := sha256.Sum256([]byte(projectDir))
	return filepath.Join(os.TempDir(), stateNamespace, hex.EncodeToString(sum[:8]))
}
