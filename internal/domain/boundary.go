package domain

// ChunkBoundary identifies a structural event a backend recognized in the
// output stream. Boundaries are consumed the same tick they are detected;
// they drive when the streaming processor flushes its buffer.
type ChunkBoundary int

const (
	// BoundaryNone means the line carries no structural signal.
	BoundaryNone ChunkBoundary = iota
	// BoundaryBuildComplete marks the end of a build, successful or not.
	BoundaryBuildComplete
	// BoundaryServerStarted marks the dev server announcing its URL.
	BoundaryServerStarted
	// BoundaryRebuildStarted marks a file-change rebuild in serve mode.
	BoundaryRebuildStarted
	// BoundaryErrorBlockEnd marks the heuristic close of a diagnostic
	// block: a blank line followed by a fresh top-level log entry.
	BoundaryErrorBlockEnd
)

// String returns a short name for logging and tests.
func (b ChunkBoundary) String() string {
	switch b {
	case BoundaryBuildComplete:
		return "build_complete"
	case BoundaryServerStarted:
		return "server_started"
	case BoundaryRebuildStarted:
		return "rebuild_started"
	case BoundaryErrorBlockEnd:
		return "error_block_end"
	default:
		return "none"
	}
}
