package main

import (
	"testing"

	"github.com/richhaase/docs-build-filter/internal/domain"
)

func TestExitCodeError_Error(t *testing.T) {
	tests := []struct {
		code     domain.ExitCode
		contains string
	}{
		{domain.ExitBuildErrors, "build errors were found"},
		{domain.ExitError, "dbf failed with error"},
		{domain.ExitInterrupted, "run was interrupted"},
		{domain.ExitCode(3), "exit code 3"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			err := exitCodeError{code: tt.code}
			if err.Error() != tt.contains {
				t.Errorf("expected %q, got %q", tt.contains, err.Error())
			}
		})
	}
}

func TestExitCode_ReturnsNilForClean(t *testing.T) {
	err := exitCode(domain.ExitClean)
	if err != nil {
		t.Errorf("expected nil for ExitClean, got %v", err)
	}
}

func TestExitCode_ReturnsErrorForOtherCodes(t *testing.T) {
	codes := []domain.ExitCode{
		domain.ExitBuildErrors,
		domain.ExitError,
		domain.ExitInterrupted,
	}

	for _, code := range codes {
		err := exitCode(code)
		if err == nil {
			t.Errorf("expected error for code %d, got nil", code)
		}
		exitErr, ok := err.(exitCodeError)
		if !ok {
			t.Errorf("expected exitCodeError type, got %T", err)
		}
		if exitErr.code != code {
			t.Errorf("expected code %d, got %d", code, exitErr.code)
		}
	}
}
