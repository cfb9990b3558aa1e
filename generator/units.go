package generator

import (
	"context"
	"fmt"

	"github.com/gofhir/labcodeset/pipeline"
	"github.com/gofhir/labcodeset/pkg/issue"
	"github.com/gofhir/labcodeset/publication"
	"github.com/gofhir/labcodeset/resource"
)

const (
	ucumCodeSystemTitle       = "Unified Code for Units of Measure (UCUM)"
	ucumCodeSystemDescription = "Fragment of the Unified Code for Units of Measure (UCUM) representing all commonly used UCUM codes specified in the " +
		"FHIR specification at https://www.hl7.org/fhir/valueset-ucum-common.html with additional Nederlandse Labcodeset expressions and Dutch translations"

	ucumValueSetTitle       = "Nederlandse UCUM"
	ucumValueSetDescription = "Nederlandse Labcodeset UCUM codes"
	ucumValueSetURL         = resource.URIPrefix + "/vs/labconcepts-ucum"

	ucumConceptMapTitle       = "Nederlandse Labcodeset UCUM ConceptMap"
	ucumConceptMapDescription = "Map from Nederlandse Labcodeset LOINC to UCUM units"
	ucumConceptMapURL         = resource.URIPrefix + "/cm/labconcepts-ucum"
)

// Units generates the UCUM code system fragment, the value set of local
// unit expressions and the LOINC to UCUM concept map.
type Units struct {
	common CommonUnitsSource
}

// NewUnits creates a Units generator. A nil source adds no common codes to
// the fragment.
func NewUnits(common CommonUnitsSource) *Units {
	return &Units{common: common}
}

// Name returns the generator name.
func (g *Units) Name() string {
	return pipeline.NameUnits
}

// Generate builds the fragment, value set and concept map, in that order.
// A unit definition without expression or Dutch name aborts generation.
func (g *Units) Generate(ctx context.Context, pctx *pipeline.Context) ([]resource.Entry, error) {
	defs := pctx.Tables.Units()
	if err := validateUnits(defs); err != nil {
		return nil, err
	}

	cs, err := g.codeSystem(ctx, pctx, defs)
	if err != nil {
		return nil, err
	}

	return []resource.Entry{
		{Role: resource.RoleUcumCodeSystem, Resource: cs},
		{Role: resource.RoleUcumValueSet, Resource: g.valueSet(pctx, defs)},
		{Role: resource.RoleUcumConceptMap, Resource: g.conceptMap(pctx)},
	}, nil
}

func validateUnits(defs []publication.UnitDefinition) error {
	for _, u := range defs {
		if u.RM == "" {
			return &DataIntegrityError{Field: "rm", Ref: u.ID}
		}
		if u.NLName == "" {
			return &DataIntegrityError{Field: "nlname", Ref: u.ID}
		}
	}
	return nil
}

func (g *Units) codeSystem(ctx context.Context, pctx *pipeline.Context, defs []publication.UnitDefinition) (*resource.CodeSystem, error) {
	id := "Ucum-" + resource.UcumVersion
	cs := &resource.CodeSystem{
		Metadata: resource.NewMetadata(resource.TypeCodeSystem, id, resource.UcumSystem, resource.UcumVersion,
			ucumCodeSystemTitle, ucumCodeSystemDescription, resource.StatusActive),
		ValueSet: resource.UcumSystem + "/vs",
		Content:  resource.ContentFragment,
	}
	// UCUM is not published by the Labcodeset publisher.
	cs.Publisher = ""

	seen := make(map[string]struct{}, len(defs))
	for _, u := range defs {
		if _, dup := seen[u.RM]; dup {
			continue
		}
		seen[u.RM] = struct{}{}

		concept := resource.Concept{Code: u.RM, Display: u.NLName}
		if u.Name != "" {
			concept.Designation = []resource.Designation{{Language: resource.EnglishLanguage, Value: u.Name}}
		} else {
			pctx.Report(issue.DiagUnitNoEnglish, g.Name(), map[string]any{"rm": u.RM}, "/publication/units/unit[@id='"+u.ID+"']")
		}
		cs.Concept = append(cs.Concept, concept)
	}

	if g.common == nil {
		return cs, nil
	}
	common, err := g.common.CommonUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch common UCUM codes: %w", err)
	}
	for _, c := range common {
		if c.Code == "" {
			continue
		}
		if _, dup := seen[c.Code]; dup {
			continue
		}
		seen[c.Code] = struct{}{}
		cs.Concept = append(cs.Concept, resource.Concept{Code: c.Code, Display: c.Display})
	}

	return cs, nil
}

func (g *Units) valueSet(pctx *pipeline.Context, defs []publication.UnitDefinition) *resource.ValueSet {
	id := "Labconcepts-ucum-" + pctx.Version
	vs := &resource.ValueSet{
		Metadata: resource.NewMetadata(resource.TypeValueSet, id, ucumValueSetURL, pctx.Version,
			ucumValueSetTitle, ucumValueSetDescription, resource.StatusActive),
	}

	include := resource.Include{System: resource.UcumSystem}
	seen := make(map[string]struct{}, len(defs))
	for _, u := range defs {
		if _, dup := seen[u.RM]; dup {
			continue
		}
		seen[u.RM] = struct{}{}
		include.Concept = append(include.Concept, resource.ConceptRef{Code: u.RM, Display: u.NLName})
	}
	vs.Compose = &resource.Compose{Include: []resource.Include{include}}
	return vs
}

func (g *Units) conceptMap(pctx *pipeline.Context) *resource.ConceptMap {
	id := "Labconcepts-ucum-" + pctx.Version
	cm := &resource.ConceptMap{
		Metadata: resource.NewMetadata(resource.TypeConceptMap, id, ucumConceptMapURL, pctx.Version,
			ucumConceptMapTitle, ucumConceptMapDescription, resource.StatusActive),
	}

	group := loincGroup(pctx.LoincVersion, resource.UcumSystem, resource.UcumVersion)
	for i := range pctx.Publication.LabConcepts {
		c := &pctx.Publication.LabConcepts[i]
		if c.Unit == nil {
			pctx.Report(issue.DiagUnitNone, g.Name(), map[string]any{"code": c.Code()}, conceptPath(i, ""))
			continue
		}
		u, ok := pctx.Tables.Unit(c.Unit.Ref)
		if !ok {
			pctx.Report(issue.DiagUnitRefNotFound, g.Name(), map[string]any{"ref": c.Unit.Ref, "code": c.Code()}, conceptPath(i, "units/unit"))
			continue
		}
		group.Element = append(group.Element, element(c, u.RM, u.NLName))
	}
	cm.Group = nonEmpty(group)
	return cm
}
