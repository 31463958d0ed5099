package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyPermalink  = "permalink"
	KeyLayout     = "layout"
	KeyCode       = "code"
	KeySeverity   = "severity"
	KeyWorkers    = "workers"
	KeyDocuments  = "documents"
	KeyFailed     = "failed"
	KeyOutcome    = "outcome"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Permalink(p string) slog.Attr     { return slog.String(KeyPermalink, p) }
func Layout(name string) slog.Attr     { return slog.String(KeyLayout, name) }
func Code(c string) slog.Attr          { return slog.String(KeyCode, c) }
func Severity(s string) slog.Attr      { return slog.String(KeySeverity, s) }
func Workers(n int) slog.Attr          { return slog.Int(KeyWorkers, n) }
func Documents(n int) slog.Attr        { return slog.Int(KeyDocuments, n) }
func Failed(n int) slog.Attr           { return slog.Int(KeyFailed, n) }
func Outcome(o string) slog.Attr       { return slog.String(KeyOutcome, o) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
