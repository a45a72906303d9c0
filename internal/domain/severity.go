package domain

import (
	"encoding/json"
	"strings"
)

// Severity classifies a diagnostic as a warning or an error.
type Severity uint8

const (
	// SeverityWarning is a non-fatal diagnostic.
	SeverityWarning Severity = iota
	// SeverityError is a diagnostic that makes the build unusable.
	SeverityError
)

// String returns the level token the build tools print for this severity.
func (s Severity) String() string {
	if s == SeverityError {
		return "ERROR"
	}
	return "WARNING"
}

// ParseSeverity maps a level token to a Severity. Anything that is not an
// ERROR token is a warning; parsers only construct issues from lines that
// already carried a warning or error tag.
func ParseSeverity(tag string) Severity {
	if strings.EqualFold(strings.TrimSpace(tag), "ERROR") {
		return SeverityError
	}
	return SeverityWarning
}

// MarshalJSON encodes the severity as its level token.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a level token into a Severity.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	*s = ParseSeverity(tag)
	return nil
}
