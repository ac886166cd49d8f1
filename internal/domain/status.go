package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// RunStatus is the outcome of a report build.
type RunStatus int

const (
	RunSucceeded RunStatus = iota
	RunFailed
)

var runStatusLabels = map[RunStatus]string{
	RunSucceeded: "succeeded",
	RunFailed:    "failed",
}

var runStatusCodes = map[string]RunStatus{
	"succeeded": RunSucceeded,
	"success":   RunSucceeded,
	"ok":        RunSucceeded,
	"failed":    RunFailed,
	"error":     RunFailed,
}

// String returns a human-readable label for a run status.
func (s RunStatus) String() string {
	if label, ok := runStatusLabels[s]; ok {
		return label
	}

	return "unknown"
}

// MarshalText encodes the status as its label.
func (s RunStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status label.
func (s *RunStatus) UnmarshalText(text []byte) error {
	code, ok := ParseRunStatus(string(text))
	if !ok {
		return fmt.Errorf("unknown run status %q", text)
	}
	*s = code
	return nil
}

// Value stores the status as its numeric code.
func (s RunStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

// ParseRunStatus returns the status for a given label (case-insensitive).
func ParseRunStatus(label string) (RunStatus, bool) {
	code, ok := runStatusCodes[strings.ToLower(strings.TrimSpace(label))]

	return code, ok
}
