// Package issue defines run diagnostics aligned with FHIR OperationOutcome.
//
// Diagnostics never interrupt generation: they are recorded on a Collector,
// logged as they arrive and handed back to the caller with the run result.
package issue

import (
	"sync"

	"github.com/rs/zerolog"
)

// Severity represents the severity of a diagnostic.
type Severity string

// Severity constants aligned with FHIR IssueSeverity.
const (
	SeverityFatal       Severity = "fatal"
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "information"
)

// Code represents the type of issue (IssueType).
type Code string

// Code constants aligned with FHIR IssueType.
const (
	CodeInvalid       Code = "invalid"
	CodeRequired      Code = "required"
	CodeValue         Code = "value"
	CodeNotFound      Code = "not-found"
	CodeProcessing    Code = "processing"
	CodeBusinessRule  Code = "business-rule"
	CodeException     Code = "exception"
	CodeIncomplete    Code = "incomplete"
	CodeInformational Code = "informational"
)

// Issue represents a single diagnostic raised during a run.
type Issue struct {
	// Severity indicates the severity level (error, warning, etc.)
	Severity Severity

	// Code indicates the type of issue
	Code Code

	// Diagnostics is the human-readable description of the issue
	Diagnostics string

	// Expression points at the affected source element, e.g. a LOINC number
	// or a unit reference.
	Expression []string

	// Source identifies the component that raised the issue
	Source string

	// MessageID is the identifier from the diagnostic catalog
	MessageID string
}

// Collector gathers issues from concurrently running components.
// Every recorded issue is also written to the logger.
type Collector struct {
	mu     sync.Mutex
	issues []Issue
	log    zerolog.Logger
}

// defaultIssueCapacity is the pre-allocated capacity for the issues slice.
const defaultIssueCapacity = 32

// NewCollector creates a Collector that logs through log.
func NewCollector(log zerolog.Logger) *Collector {
	return &Collector{
		issues: make([]Issue, 0, defaultIssueCapacity),
		log:    log,
	}
}

// Add records an issue.
func (c *Collector) Add(is Issue) {
	c.mu.Lock()
	c.issues = append(c.issues, is)
	c.mu.Unlock()

	c.logIssue(is)
}

// Report records an issue built from the diagnostic catalog.
func (c *Collector) Report(id DiagnosticID, source string, params map[string]any, expression ...string) {
	c.Add(NewIssue(id, source, params, expression...))
}

// Issues returns a copy of the recorded issues in arrival order.
func (c *Collector) Issues() []Issue {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Issue, len(c.issues))
	copy(out, c.issues)
	return out
}

// Len returns the number of recorded issues.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.issues)
}

// Since returns a copy of the issues recorded after the first n.
func (c *Collector) Since(n int) []Issue {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n >= len(c.issues) {
		return []Issue{}
	}
	out := make([]Issue, len(c.issues)-n)
	copy(out, c.issues[n:])
	return out
}

// ByID returns recorded issues carrying the given catalog id.
func (c *Collector) ByID(id DiagnosticID) []Issue {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Issue
	for _, is := range c.issues {
		if is.MessageID == string(id) {
			out = append(out, is)
		}
	}
	return out
}

func (c *Collector) logIssue(is Issue) {
	var ev *zerolog.Event
	switch is.Severity {
	case SeverityFatal, SeverityError:
		ev = c.log.Error()
	case SeverityWarning:
		ev = c.log.Warn()
	default:
		ev = c.log.Info()
	}
	ev.Str("severity", string(is.Severity)).
		Str("code", string(is.Code)).
		Str("id", is.MessageID).
		Str("source", is.Source).
		Strs("expression", is.Expression).
		Msg(is.Diagnostics)
}

// HasErrors returns true if any issue is error-level or worse.
func HasErrors(issues []Issue) bool {
	return countSeverity(issues, SeverityError)+countSeverity(issues, SeverityFatal) > 0
}

// CountSeverity returns the number of issues with the given severity.
func CountSeverity(issues []Issue, severity Severity) int {
	return countSeverity(issues, severity)
}

func countSeverity(issues []Issue, severity Severity) int {
	count := 0
	for _, is := range issues {
		if is.Severity == severity {
			count++
		}
	}
	return count
}
