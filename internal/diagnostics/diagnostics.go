// Package diagnostics defines the structured problem records produced by the
// publishing pipeline. Per-document problems are data, not errors: they are
// attached to the document and collected into a Report so that one malformed
// file never takes down a batch.
package diagnostics

import "fmt"

// Code enumerates machine-parseable diagnostic identifiers.
// These codes are a stable contract and should only be appended.
type Code string

const (
	CodeMalformedFrontMatter Code = "MalformedFrontMatter"
	CodeDateAmbiguous        Code = "DateAmbiguous"
	CodeDuplicatePermalink   Code = "DuplicatePermalink"
	CodeMissingLayout        Code = "MissingLayout"
	CodeUnreadableSource     Code = "UnreadableSource"
	CodeLayoutCycle          Code = "LayoutCycle"
	CodeRegistryUnavailable  Code = "RegistryUnavailable"
	CodeCancelled            Code = "Cancelled"
)

// Severity classifies the impact of a diagnostic on the run.
type Severity string

const (
	SeverityInfo    Severity = "info"    // control signal, no impact on output
	SeverityWarning Severity = "warning" // document stays in the render set
	SeverityError   Severity = "error"   // document excluded, listed as failed
	SeverityFatal   Severity = "fatal"   // whole run aborts, no site model
)

// rank orders severities for filtering.
func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityWarning:
		return 1
	case SeverityError:
		return 2
	case SeverityFatal:
		return 3
	default:
		return 2
	}
}

// AtLeast reports whether s is as severe as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// DefaultSeverity returns the severity a code carries in this pipeline.
func (c Code) DefaultSeverity() Severity {
	switch c {
	case CodeMalformedFrontMatter, CodeDateAmbiguous, CodeMissingLayout:
		return SeverityWarning
	case CodeDuplicatePermalink, CodeUnreadableSource:
		return SeverityError
	case CodeLayoutCycle, CodeRegistryUnavailable:
		return SeverityFatal
	case CodeCancelled:
		return SeverityInfo
	default:
		return SeverityError
	}
}

// Diagnostic is one problem record. Path is empty for run-level diagnostics.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Path     string   `json:"documentPath,omitempty"`
	Code     Code     `json:"code"`
	Message  string   `json:"message"`
}

// New builds a diagnostic with the code's default severity.
func New(code Code, path, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: code.DefaultSeverity(),
		Path:     path,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s %s: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s %s %s: %s", d.Severity, d.Path, d.Code, d.Message)
}
