// Package pipeline runs resource generators over a publication.
package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/gofhir/labcodeset/pkg/issue"
	"github.com/gofhir/labcodeset/publication"
)

// Context holds the read-only inputs shared by every generator of one run.
//
// The publication and tables are never written after NewContext returns, so
// a Context may be shared by generators running in parallel. Issues is safe
// for concurrent use.
type Context struct {
	// Publication is the decoded source publication
	Publication *publication.Publication

	// Tables are the reference indices built from Publication
	Tables *publication.Tables

	// Version is the publication version stamped on every resource
	Version string

	// LoincVersion is the LOINC release the publication targets
	LoincVersion string

	// Issues receives the run's diagnostics
	Issues *issue.Collector
}

// NewContext builds the reference tables for pub. A nil collector is
// replaced by one that does not log.
func NewContext(pub *publication.Publication, loincVersion string, issues *issue.Collector) *Context {
	if issues == nil {
		issues = issue.NewCollector(zerolog.Nop())
	}
	return &Context{
		Publication:  pub,
		Tables:       publication.BuildTables(pub),
		Version:      pub.Version(),
		LoincVersion: loincVersion,
		Issues:       issues,
	}
}

// Report records a diagnostic from source.
func (c *Context) Report(id issue.DiagnosticID, source string, params map[string]any, expression ...string) {
	c.Issues.Report(id, source, params, expression...)
}
