package main

import (
	"fmt"

	"github.com/richhaase/docs-build-filter/internal/domain"
)

// exitCodeError is a wrapper type for returning exit codes via error interface.
type exitCodeError struct {
	code domain.ExitCode
}

func (e exitCodeError) Error() string {
	switch e.code {
	case domain.ExitBuildErrors:
		return "build errors were found"
	case domain.ExitError:
		return "dbf failed with error"
	case domain.ExitInterrupted:
		return "run was interrupted"
	default:
		return fmt.Sprintf("exit code %d", e.code)
	}
}

func exitCode(code domain.ExitCode) error {
	if code == domain.ExitClean {
		return nil
	}
	return exitCodeError{code: code}
}
