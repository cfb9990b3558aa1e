package engine

import (
	"time"

	"github.com/gofhir/labcodeset/pkg/issue"
	"github.com/gofhir/labcodeset/resource"
)

// Result contains the outcome of a transform run.
type Result struct {
	// Version is the publication version, the year of its effective date.
	Version string

	// LoincVersion is the LOINC release the run was made against.
	LoincVersion string

	// Resources holds the generated resources in output order.
	Resources []resource.Entry

	// Bundle collects Resources. It is nil when the run failed.
	Bundle *resource.Bundle

	// Issues contains every diagnostic raised during the run.
	Issues []issue.Issue

	// Completed names the generators that finished.
	Completed []string

	// Duration is the wall time of the run.
	Duration time.Duration
}

// HasErrors returns true if any issue has error or fatal severity.
func (r *Result) HasErrors() bool {
	return issue.HasErrors(r.Issues)
}

// ErrorCount returns the number of error and fatal issues.
func (r *Result) ErrorCount() int {
	return issue.CountSeverity(r.Issues, issue.SeverityError) + issue.CountSeverity(r.Issues, issue.SeverityFatal)
}

// WarningCount returns the number of warnings.
func (r *Result) WarningCount() int {
	return issue.CountSeverity(r.Issues, issue.SeverityWarning)
}

// InfoCount returns the number of informational issues.
func (r *Result) InfoCount() int {
	return issue.CountSeverity(r.Issues, issue.SeverityInformation)
}

// ByRole returns the resources playing role, in output order.
func (r *Result) ByRole(role resource.Role) []resource.Entry {
	var out []resource.Entry
	for _, e := range r.Resources {
		if e.Role == role {
			out = append(out, e)
		}
	}
	return out
}

// Complete returns true if every generator finished.
func (r *Result) Complete() bool {
	return r.Bundle != nil
}
