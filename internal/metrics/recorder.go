package metrics

import "time"

// DocumentOutcome classifies what happened to one document.
type DocumentOutcome string

const (
	DocumentPublished DocumentOutcome = "published"
	DocumentWarning   DocumentOutcome = "warning"
	DocumentFailed    DocumentOutcome = "failed"
)

// RunOutcome is the final status of a pipeline run.
type RunOutcome string

const (
	RunSuccess   RunOutcome = "success"
	RunWarning   RunOutcome = "warning"
	RunFailed    RunOutcome = "failed"
	RunCancelled RunOutcome = "cancelled"
	RunFatal     RunOutcome = "fatal"
)

// Recorder defines observability hooks for pipeline runs. Implementations may
// forward to Prometheus or any other backend.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncDocumentOutcome(outcome DocumentOutcome)
	IncDiagnostic(code, severity string)
	IncRunOutcome(outcome RunOutcome)
	SetWorkers(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncDocumentOutcome(DocumentOutcome)         {}
func (NoopRecorder) IncDiagnostic(string, string)               {}
func (NoopRecorder) IncRunOutcome(RunOutcome)                   {}
func (NoopRecorder) SetWorkers(int)                             {}
