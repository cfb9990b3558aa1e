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
	materialsValueSetTitle       = "Nederlandse Labcodeset Materials"
	materialsValueSetDescription = "SNOMED CT materials codes referenced in the Nederlandse Labcodeset"
	materialsValueSetURL         = resource.URIPrefix + "/vs/labconcepts-materials"

	materialsConceptMapTitle       = "Nederlandse Labcodeset Materials map"
	materialsConceptMapDescription = "Map of LOINC Nederlandse Labcodeset codes to SNOMED CT Materials"
	materialsConceptMapURL         = resource.URIPrefix + "/cm/labconcepts-materials"
)

// Materials generates the SNOMED CT materials value set and the LOINC to
// material concept map.
type Materials struct {
	lookup Lookup
}

// NewMaterials creates a Materials generator resolving displays through
// lookup.
func NewMaterials(lookup Lookup) *Materials {
	return &Materials{lookup: lookup}
}

// Name returns the generator name.
func (g *Materials) Name() string {
	return pipeline.NameMaterials
}

// Generate builds the value set and concept map, in that order.
func (g *Materials) Generate(ctx context.Context, pctx *pipeline.Context) ([]resource.Entry, error) {
	vs, err := g.valueSet(ctx, pctx)
	if err != nil {
		return nil, err
	}
	cm, err := g.conceptMap(ctx, pctx)
	if err != nil {
		return nil, err
	}
	return []resource.Entry{
		{Role: resource.RoleMaterialValueSet, Resource: vs},
		{Role: resource.RoleMaterialConceptMap, Resource: cm},
	}, nil
}

func (g *Materials) display(ctx context.Context, code, fallback string) (string, error) {
	d, err := g.lookup.ResolveDisplay(ctx, code, resource.SnomedSystem, resource.SnomedNLEdition, fallback)
	if err != nil {
		return "", fmt.Errorf("failed to resolve material %s: %w", code, err)
	}
	return d, nil
}

func (g *Materials) valueSet(ctx context.Context, pctx *pipeline.Context) (*resource.ValueSet, error) {
	id := "Labconcepts-materials-" + pctx.Version
	vs := &resource.ValueSet{
		Metadata: resource.NewMetadata(resource.TypeValueSet, id, materialsValueSetURL, pctx.Version,
			materialsValueSetTitle, materialsValueSetDescription, resource.StatusDraft),
	}

	include := resource.Include{System: resource.SnomedSystem, Version: resource.SnomedNLEdition}
	seen := make(map[string]struct{}, len(pctx.Publication.Materials))
	for i, m := range pctx.Publication.Materials {
		if !m.Active() {
			pctx.Report(issue.DiagMaterialNotActive, g.Name(), map[string]any{"code": m.Code, "status": m.Status},
				fmt.Sprintf("/publication/materials/material[%d]", i+1))
		}
		if _, dup := seen[m.Code]; dup {
			continue
		}
		seen[m.Code] = struct{}{}

		d, err := g.display(ctx, m.Code, m.DisplayName)
		if err != nil {
			return nil, err
		}
		include.Concept = append(include.Concept, resource.ConceptRef{Code: m.Code, Display: d})
	}
	vs.Compose = &resource.Compose{Include: []resource.Include{include}}
	return vs, nil
}

func (g *Materials) conceptMap(ctx context.Context, pctx *pipeline.Context) (*resource.ConceptMap, error) {
	id := "Labconcepts-materials-" + pctx.Version
	cm := &resource.ConceptMap{
		Metadata: resource.NewMetadata(resource.TypeConceptMap, id, materialsConceptMapURL, pctx.Version,
			materialsConceptMapTitle, materialsConceptMapDescription, resource.StatusActive),
	}

	group := loincGroup(pctx.LoincVersion, resource.SnomedSystem, resource.SnomedNLEdition)
	for i := range pctx.Publication.LabConcepts {
		c := &pctx.Publication.LabConcepts[i]
		for j, ref := range c.Materials {
			path := conceptPath(i, fmt.Sprintf("materials/material[%d]", j+1))
			if ref.Status != "" && ref.Status != resource.StatusActive {
				pctx.Report(issue.DiagMaterialNotActive, g.Name(), map[string]any{"code": ref.Code, "status": ref.Status}, path)
			}

			code, fallback, ok := materialTarget(pctx.Tables, ref)
			if !ok {
				pctx.Report(issue.DiagMaterialRefNotFound, g.Name(), map[string]any{"material": ref.Ref, "code": c.Code()}, path)
				continue
			}

			d, err := g.display(ctx, code, fallback)
			if err != nil {
				return nil, err
			}
			group.Element = append(group.Element, element(c, code, d))
		}
	}
	cm.Group = nonEmpty(group)
	return cm, nil
}

// materialTarget resolves a concept's material reference to the definition
// it points at, or failing that to the code the reference carries.
func materialTarget(t *publication.Tables, ref publication.MaterialRef) (code, display string, ok bool) {
	if def, found := t.MaterialDefinition(ref.Ref); found && def.Code != "" {
		return def.Code, def.DisplayName, true
	}
	if m, found := t.Material(ref.Code); found && m.Code != "" {
		return m.Code, m.DisplayName, true
	}
	return "", "", false
}
