// Package domain provides core types for the documentation build filter.
package domain

// ExitCode represents the exit status of the filter process.
type ExitCode int

const (
	// ExitClean indicates the build output contained no errors.
	ExitClean ExitCode = 0
	// ExitBuildErrors indicates error-severity issues were recorded.
	ExitBuildErrors ExitCode = 1
	// ExitError indicates the filter itself failed.
	ExitError ExitCode = 2
	// ExitInterrupted indicates the run was interrupted by a signal.
	ExitInterrupted ExitCode = 130
)

// Int returns the exit code as an int for use with os.Exit.
func (e ExitCode) Int() int {
	return int(e)
}
