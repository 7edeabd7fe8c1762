package analyzer

import (
	"fmt"
	"strings"
)

// Severity represents the danger level of a finding.
type Severity int

const (
	// Safe indicates no danger detected.
	Safe Severity = iota
	// Low indicates a minor concern.
	Low
	// Medium indicates moderate risk with workarounds available.
	Medium
	// High indicates significant risk: a long table lock, a rewrite, or lost data.
	High
	// Critical indicates guaranteed data loss across a whole table.
	Critical
)

// String returns the uppercase label for the severity level.
func (s Severity) String() string {
	switch s {
	case Safe:
		return "SAFE"
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	case High:
		return "HIGH"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity accepts a label as printed by String, in any case.
func ParseSeverity(label string) (Severity, error) {
	for s := Safe; s <= Critical; s++ {
		if strings.EqualFold(label, s.String()) {
			return s, nil
		}
	}

	return Safe, fmt.Errorf("%w: %q", ErrUnknownSeverity, label)
}

// AtLeast reports whether s is as severe as threshold or worse.
func (s Severity) AtLeast(threshold Severity) bool { return s >= threshold }
