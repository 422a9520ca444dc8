package diag

import "fmt"

// WarningPolicy controls how the Sink treats warnings, per spec.md §6's
// CLI warning-level flag.
type WarningPolicy int

const (
	// WarnAll prints every warning and does not fail the build.
	WarnAll WarningPolicy = iota
	// WarnNone suppresses warning output entirely.
	WarnNone
	// WarnAsError promotes every warning to a fatal error.
	WarnAsError
)

// Sink collects diagnostics for a single compilation. Compilation is
// fail-fast and single-threaded (spec.md §5): the first error recorded
// aborts the run, so the sink never needs to buffer more than one error,
// though it accumulates warnings as they occur.
type Sink struct {
	Policy   WarningPolicy
	Warnings []*Diagnostic
	err      *Diagnostic
}

// NewSink creates a Sink with the given warning policy.
func NewSink(policy WarningPolicy) *Sink {
	return &Sink{Policy: policy}
}

// Error records a fatal diagnostic. Once set, Failed reports true and no
// further compilation should occur — callers are expected to check
// Failed (or the return value) after each step and stop immediately,
// since karelc never emits partial output on error.
func (s *Sink) Error(d *Diagnostic) error {
	d.Severity = SeverityError
	if s.err == nil {
		s.err = d
	}
	return d
}

// Errorf is a convenience wrapper building a Diagnostic from a message.
func (s *Sink) Errorf(file string, line, col int, format string, args ...any) error {
	return s.Error(&Diagnostic{
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		File:     file,
		Line:     line,
		Column:   col,
	})
}

// Warn records a warning, applying the sink's policy. When the policy is
// WarnAsError, the warning is promoted and returned as an error so the
// caller aborts exactly as it would for a native error.
func (s *Sink) Warn(d *Diagnostic) error {
	d.Severity = SeverityWarning
	switch s.Policy {
	case WarnNone:
		return nil
	case WarnAsError:
		return s.Error(d)
	default:
		s.Warnings = append(s.Warnings, d)
		return nil
	}
}

// Warnf is a convenience wrapper building a Diagnostic from a message.
func (s *Sink) Warnf(file string, line, col int, format string, args ...any) error {
	return s.Warn(&Diagnostic{
		Message: fmt.Sprintf(format, args...),
		File:    file,
		Line:    line,
		Column:  col,
	})
}

// Failed reports whether a fatal error has been recorded.
func (s *Sink) Failed() bool { return s.err != nil }

// Err returns the first recorded fatal diagnostic, or nil.
func (s *Sink) Err() error {
	if s.err == nil {
		return nil
	}
	return s.err
}

// Render writes every recorded warning (and the fatal error, if any) in
// rustc-style formatted form, colored when color is true.
func (s *Sink) Render(color bool) string {
	out := ""
	for _, w := range s.Warnings {
		out += w.Format(color) + "\n"
	}
	if s.err != nil {
		out += s.err.Format(color) + "\n"
	}
	return out
}
