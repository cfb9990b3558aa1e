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
	outcomesConceptMapTitle       = "Nederlandse Labcodeset Outcomes map"
	outcomesConceptMapDescription = "Map from Nederlandse Labcodeset LOINC codes to Outcomes SNOMED CT Reference Set identifiers and ValueSet OIDs"
	outcomesConceptMapURL         = resource.URIPrefix + "/cm/labconcepts-outcomes"

	ordinalVersionLayout = "20060102"
)

// Outcomes generates the outcomes concept map and one value set per ordinal
// list. It performs no remote lookups.
type Outcomes struct{}

// NewOutcomes creates an Outcomes generator.
func NewOutcomes() *Outcomes {
	return &Outcomes{}
}

// Name returns the generator name.
func (g *Outcomes) Name() string {
	return pipeline.NameOutcomes
}

// Generate builds the concept map followed by the ordinal value sets in
// publication order. An ordinal with an unparseable effective date aborts
// generation.
func (g *Outcomes) Generate(ctx context.Context, pctx *pipeline.Context) ([]resource.Entry, error) {
	entries := []resource.Entry{{Role: resource.RoleOutcomeConceptMap, Resource: g.conceptMap(pctx)}}

	for i := range pctx.Publication.Ordinals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vs, err := g.ordinalValueSet(pctx, &pctx.Publication.Ordinals[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, resource.Entry{Role: resource.RoleOrdinalValueSet, Resource: vs})
	}
	return entries, nil
}

// conceptMap keeps refset targets and value set targets in separate groups.
func (g *Outcomes) conceptMap(pctx *pipeline.Context) *resource.ConceptMap {
	id := "Labconcepts-outcomes-" + pctx.Version
	cm := &resource.ConceptMap{
		Metadata: resource.NewMetadata(resource.TypeConceptMap, id, outcomesConceptMapURL, pctx.Version,
			outcomesConceptMapTitle, outcomesConceptMapDescription, resource.StatusActive),
	}

	refsets := loincGroup(pctx.LoincVersion, resource.SnomedSystem, resource.SnomedNLEdition)
	valueSets := loincGroup(pctx.LoincVersion, resource.OIDSystem, "")

	for i := range pctx.Publication.LabConcepts {
		c := &pctx.Publication.LabConcepts[i]
		o := c.Outcome
		switch {
		case o == nil:
			continue
		case o.Refset != nil && o.Refset.ConceptID != "":
			refsets.Element = append(refsets.Element, element(c, o.Refset.ConceptID, o.Refset.PreferredTerm))
		case o.ValueSet != nil && o.ValueSet.Ref != "":
			valueSets.Element = append(valueSets.Element, element(c, o.ValueSet.Ref, ""))
		default:
			pctx.Report(issue.DiagOutcomeUnmappable, g.Name(), map[string]any{"code": c.Code()}, conceptPath(i, "outcomes"))
		}
	}

	cm.Group = nonEmpty(refsets, valueSets)
	return cm
}

func (g *Outcomes) ordinalValueSet(pctx *pipeline.Context, o *publication.Ordinal) (*resource.ValueSet, error) {
	effective, err := publication.ParseDate(o.EffectiveDate)
	if err != nil {
		return nil, fmt.Errorf("ordinal %s: %w", o.ID, &DataIntegrityError{Field: "effectiveDate", Ref: o.ID})
	}

	id := "Labconcepts-" + o.ID + "-" + pctx.Version
	vs := &resource.ValueSet{
		Metadata: resource.NewMetadata(resource.TypeValueSet, id, resource.URIPrefix+"/labconcepts-ordinal-"+o.ID,
			effective.Format(ordinalVersionLayout), "Labcodeset ordinal '"+o.DisplayName+"' set", "", resource.StatusActive),
	}
	vs.Identifier = []resource.Identifier{{System: resource.OIDSystem, Value: o.ID}}

	include := resource.Include{System: resource.SnomedSystem}
	for _, c := range o.Concepts {
		include.Concept = append(include.Concept, resource.ConceptRef{Code: c.Code})
	}
	vs.Compose = &resource.Compose{Include: []resource.Include{include}}
	return vs, nil
}
