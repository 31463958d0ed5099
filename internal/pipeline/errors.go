package pipeline

import (
	"errors"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/layout"
)

// Context keys carried by fatal run errors.
const (
	ContextCode  = "code"
	ContextPath  = "path"
	ContextChain = "chain"
)

// fatalError classifies a run-fatal layout problem met while resolving the
// document at path.
func fatalError(err error, path string) error {
	var cycle *layout.CycleError
	if errors.As(err, &cycle) {
		return ferrors.WrapError(err, ferrors.CategoryLayout, "layout inheritance is cyclic").
			Fatal().
			WithContext(ContextCode, string(diagnostics.CodeLayoutCycle)).
			WithContext(ContextPath, path).
			WithContext(ContextChain, cycle.Chain).
			Build()
	}
	if errors.Is(err, layout.ErrRegistryUnavailable) {
		return ferrors.WrapError(err, ferrors.CategoryLayout, "layout registry unavailable").
			Fatal().
			WithContext(ContextCode, string(diagnostics.CodeRegistryUnavailable)).
			WithContext(ContextPath, path).
			Build()
	}
	return ferrors.WrapError(err, ferrors.CategoryPipeline, "layout resolution failed").
		Fatal().
		WithContext(ContextPath, path).
		Build()
}

// FatalDiagnostic renders a run error as a fatal diagnostic for reports.
func FatalDiagnostic(err error) diagnostics.Diagnostic {
	code := diagnostics.Code("")
	if ce, ok := ferrors.AsClassified(err); ok {
		if c, ok := ce.Context().GetString(ContextCode); ok {
			code = diagnostics.Code(c)
		}
	}
	if code == "" {
		code = diagnostics.CodeRegistryUnavailable
	}
	return diagnostics.Diagnostic{
		Severity: diagnostics.SeverityFatal,
		Code:     code,
		Message:  err.Error(),
	}
}
