package diagnostics

// Report is an ordered sequence of diagnostics for one run.
type Report []Diagnostic

// Filter returns the diagnostics at or above the given severity, preserving order.
func (r Report) Filter(min Severity) Report {
	out := make(Report, 0, len(r))
	for _, d := range r {
		if d.Severity.AtLeast(min) {
			out = append(out, d)
		}
	}
	return out
}

// WithCode returns the diagnostics carrying code, preserving order.
func (r Report) WithCode(code Code) Report {
	var out Report
	for _, d := range r {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// ForPath returns the diagnostics attached to one document.
func (r Report) ForPath(path string) Report {
	var out Report
	for _, d := range r {
		if d.Path == path {
			out = append(out, d)
		}
	}
	return out
}

// Counts tallies diagnostics by severity.
func (r Report) Counts() map[Severity]int {
	counts := make(map[Severity]int, 4)
	for _, d := range r {
		counts[d.Severity]++
	}
	return counts
}

// HasErrors reports whether any diagnostic is an error or fatal.
func (r Report) HasErrors() bool {
	for _, d := range r {
		if d.Severity.AtLeast(SeverityError) {
			return true
		}
	}
	return false
}

// Worst returns the highest severity in the report, or info when empty.
func (r Report) Worst() Severity {
	worst := SeverityInfo
	for _, d := range r {
		if d.Severity.rank() > worst.rank() {
			worst = d.Severity
		}
	}
	return worst
}
