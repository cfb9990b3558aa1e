// Package generator turns a Labcodeset publication into FHIR terminology
// resources.
//
// There is one generator per resource family: Loinc (supplement and value
// set), Units (UCUM fragment, value set and concept map), Materials (value
// set and concept map) and Outcomes (concept map and ordinal value sets).
// Each implements pipeline.Generator. Recoverable misses are reported on the
// pipeline Context's issue collector; data-integrity violations and
// transport failures are returned as errors.
package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofhir/labcodeset/publication"
	"github.com/gofhir/labcodeset/resource"
	"github.com/gofhir/labcodeset/terminology"
)

// Lookup resolves concept displays and properties against the terminology
// server. terminology.LookupCache implements it.
type Lookup interface {
	ResolveDisplay(ctx context.Context, code, system, version, fallback string) (string, error)
	ResolveAllProperties(ctx context.Context, code, system, version string) ([]terminology.Property, error)
}

// CommonUnitsSource supplies the common UCUM codes merged into the UCUM
// fragment.
type CommonUnitsSource interface {
	CommonUnits(ctx context.Context) ([]resource.Coding, error)
}

// DataIntegrityError reports a required publication element that is missing
// or malformed. No conformant resource can be produced from such input.
type DataIntegrityError struct {
	// Field is the missing or malformed element
	Field string

	// Ref identifies the definition carrying it
	Ref string
}

// Error implements error.
func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("publication data integrity: %s has no valid %s", e.Ref, e.Field)
}

// IsDataIntegrity reports whether err is or wraps a *DataIntegrityError.
func IsDataIntegrity(err error) bool {
	var die *DataIntegrityError
	return errors.As(err, &die)
}

var _ Lookup = (*terminology.LookupCache)(nil)

// conceptPath locates the i-th concept in the source document.
func conceptPath(i int, rest string) string {
	p := fmt.Sprintf("/publication/labConcepts/labConcept[%d]", i+1)
	if rest != "" {
		p += "/" + rest
	}
	return p
}

// loincGroup returns a concept map group sourced from the LOINC release.
func loincGroup(loincVersion, target, targetVersion string) resource.Group {
	return resource.Group{
		Source:        resource.LoincSystem,
		SourceVersion: loincVersion,
		Target:        target,
		TargetVersion: targetVersion,
	}
}

// element maps a concept to a single target.
func element(c *publication.LabConcept, code, display string) resource.Element {
	return resource.Element{
		Code:    c.Code(),
		Display: c.Display(),
		Target: []resource.Target{{
			Code:        code,
			Display:     display,
			Equivalence: resource.EquivalenceRelatedTo,
		}},
	}
}

// nonEmpty drops groups without elements, which R4 does not allow.
func nonEmpty(groups ...resource.Group) []resource.Group {
	out := make([]resource.Group, 0, len(groups))
	for _, g := range groups {
		if len(g.Element) > 0 {
			out = append(out, g)
		}
	}
	return out
}
