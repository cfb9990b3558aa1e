package generator

import (
	"context"
	"fmt"

	"github.com/gofhir/labcodeset/pipeline"
	"github.com/gofhir/labcodeset/pkg/issue"
	"github.com/gofhir/labcodeset/resource"
	"github.com/gofhir/labcodeset/terminology"
)

const (
	supplementID          = "labconcepts"
	supplementName        = "Labconcepts"
	supplementTitle       = "Nederlandse Labcodeset LOINC Supplement"
	supplementDescription = "Supplement to LOINC incorporating Dutch translations and Nederlandse Labcodeset additional properties"
	supplementURL         = resource.URIPrefix + "/cs/labconcepts"

	loincValueSetTitle       = "Nederlandse Labcodeset"
	loincValueSetDescription = "Unique set of LOINC codes referenced by Nederlandse Labcodeset"
	loincValueSetURL         = resource.URIPrefix + "/vs/labconcepts"
	loincValueSetOID         = "2.16.840.1.113883.2.4.3.11.22.250"
)

// Loinc generates the LOINC supplement carrying the Dutch translations and
// the value set of every LOINC code in the publication.
//
// A Loinc generator owns the set of LOINC part codes already published, so
// one instance serves one run and is not safe for concurrent Generate calls.
type Loinc struct {
	lookup Lookup
	seen   partSet
}

// NewLoinc creates a Loinc generator resolving properties and material
// displays through lookup.
func NewLoinc(lookup Lookup) *Loinc {
	return &Loinc{lookup: lookup, seen: make(partSet)}
}

// Name returns the generator name.
func (g *Loinc) Name() string {
	return pipeline.NameLoinc
}

// Generate builds the supplement and the value set, in that order.
func (g *Loinc) Generate(ctx context.Context, pctx *pipeline.Context) ([]resource.Entry, error) {
	cs, err := g.supplement(ctx, pctx)
	if err != nil {
		return nil, err
	}
	return []resource.Entry{
		{Role: resource.RoleLoincSupplement, Resource: cs},
		{Role: resource.RoleLoincValueSet, Resource: g.valueSet(pctx)},
	}, nil
}

func (g *Loinc) supplement(ctx context.Context, pctx *pipeline.Context) (*resource.CodeSystem, error) {
	cs := &resource.CodeSystem{
		Metadata: resource.NewMetadata(resource.TypeCodeSystem, supplementID, supplementURL, pctx.Version,
			supplementTitle, supplementDescription, resource.StatusActive),
		Content:     resource.ContentSupplement,
		Supplements: resource.LoincSystem + "|" + pctx.LoincVersion,
		Property:    supplementProperties(),
	}
	cs.Name = supplementName

	for i := range pctx.Publication.LabConcepts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		concepts, err := g.concept(ctx, pctx, i)
		if err != nil {
			return nil, err
		}
		cs.Concept = append(cs.Concept, concepts...)
	}
	return cs, nil
}

// concept returns the part concepts first published by the i-th source
// concept followed by the concept itself.
func (g *Loinc) concept(ctx context.Context, pctx *pipeline.Context, i int) ([]resource.Concept, error) {
	src := &pctx.Publication.LabConcepts[i]
	concept := resource.Concept{
		Code:     src.Code(),
		Property: []resource.ConceptProperty{resource.StringProperty(PropertyStatus, src.Status)},
	}

	var parts []resource.Concept
	tr := src.Loinc.Translation
	if tr == nil {
		concept.Display = src.Loinc.LongName
		pctx.Report(issue.DiagLoincNoTranslation, g.Name(), map[string]any{"code": src.Code()}, conceptPath(i, "loincConcept"))
	} else {
		g.translate(pctx, i, &concept)

		var err error
		parts, err = g.axes(ctx, pctx, i, &concept)
		if err != nil {
			return nil, err
		}
	}

	if err := g.materials(ctx, pctx, i, &concept); err != nil {
		return nil, err
	}
	g.unit(pctx, i, &concept)

	return append(parts, concept), nil
}

// translate sets the display, English synonym and free-text axes.
func (g *Loinc) translate(pctx *pipeline.Context, i int, concept *resource.Concept) {
	src := &pctx.Publication.LabConcepts[i]
	tr := src.Loinc.Translation

	if tr.LongName != nil {
		concept.Display = *tr.LongName
		concept.Designation = []resource.Designation{{
			Language: resource.EnglishLanguage,
			Use:      resource.SynonymUse(),
			Value:    src.Loinc.LongName,
		}}
	} else {
		concept.Display = src.Loinc.LongName
		pctx.Report(issue.DiagLoincNoTranslatedName, g.Name(), map[string]any{"code": src.Code()}, conceptPath(i, "loincConcept/translation"))
	}

	if tr.OrderObs != nil {
		concept.Property = append(concept.Property, resource.StringProperty(PropertyOrderObs, *tr.OrderObs))
	}
	if tr.Class != nil {
		concept.Property = append(concept.Property, resource.StringProperty(PropertyClass, *tr.Class))
	}
}

// axes adds a Coding property for every translated part axis returned by
// the terminology server and returns the part concepts not published yet.
func (g *Loinc) axes(ctx context.Context, pctx *pipeline.Context, i int, concept *resource.Concept) ([]resource.Concept, error) {
	src := &pctx.Publication.LabConcepts[i]
	tr := src.Loinc.Translation
	path := conceptPath(i, "loincConcept/translation")

	props, err := g.lookup.ResolveAllProperties(ctx, src.Code(), resource.LoincSystem, pctx.LoincVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve LOINC properties of %s: %w", src.Code(), err)
	}

	var parts []resource.Concept
	returned := make(map[string]bool, len(Axes))
	for _, p := range props {
		axis, ok := axisByName[p.Name]
		if !ok {
			continue
		}
		returned[axis.Name] = true
		label := axis.Label(tr)

		switch {
		case label != nil && p.Value != "":
			concept.Property = append(concept.Property, resource.CodingProperty(axis.Name, resource.Coding{
				System:  resource.LoincSystem,
				Code:    p.Value,
				Display: *label,
			}))
			if g.seen.add(p.Value) {
				parts = append(parts, resource.Concept{Code: p.Value, Display: *label})
			}
		case label != nil:
			g.reportUnresolved(pctx, src.Code(), axis.Name, *label, path)
		case p.Value != "":
			pctx.Report(issue.DiagLoincPartNotTranslated, g.Name(),
				map[string]any{"axis": axis.Name, "code": src.Code(), "part": partName(p)}, path)
		}
	}

	for _, axis := range Axes {
		if returned[axis.Name] {
			continue
		}
		if label := axis.Label(tr); label != nil {
			g.reportUnresolved(pctx, src.Code(), axis.Name, *label, path)
		}
	}
	return parts, nil
}

func (g *Loinc) reportUnresolved(pctx *pipeline.Context, code, axis, label, path string) {
	pctx.Report(issue.DiagLoincPartUnresolved, g.Name(), map[string]any{"label": label, "axis": axis, "code": code}, path)
}

func partName(p terminology.Property) string {
	if p.Display != "" {
		return p.Value + " (" + p.Display + ")"
	}
	return p.Value
}

// materials adds one MATERIAL property per referenced material.
func (g *Loinc) materials(ctx context.Context, pctx *pipeline.Context, i int, concept *resource.Concept) error {
	src := &pctx.Publication.LabConcepts[i]
	for j, m := range src.Materials {
		if m.Code == "" {
			pctx.Report(issue.DiagLoincMaterialRefMissing, g.Name(), map[string]any{"code": src.Code()},
				conceptPath(i, fmt.Sprintf("materials/material[%d]", j+1)))
			continue
		}
		d, err := g.lookup.ResolveDisplay(ctx, m.Code, resource.SnomedSystem, resource.SnomedNLEdition, m.DisplayName)
		if err != nil {
			return fmt.Errorf("failed to resolve material %s: %w", m.Code, err)
		}
		concept.Property = append(concept.Property, resource.CodingProperty(PropertyMaterial, resource.Coding{
			System:  resource.SnomedSystem,
			Code:    m.Code,
			Display: d,
		}))
	}
	return nil
}

// unit adds the EXAMPLE_UCUM_UNITS property.
func (g *Loinc) unit(pctx *pipeline.Context, i int, concept *resource.Concept) {
	src := &pctx.Publication.LabConcepts[i]
	if src.Unit == nil {
		return
	}
	u, ok := pctx.Tables.Unit(src.Unit.Ref)
	if !ok {
		pctx.Report(issue.DiagLoincUnitRefNotFound, g.Name(), map[string]any{"ref": src.Unit.Ref, "code": src.Code()}, conceptPath(i, "units/unit"))
		return
	}
	concept.Property = append(concept.Property, resource.CodingProperty(PropertyUnits, resource.Coding{
		System:  resource.UcumSystem,
		Code:    u.RM,
		Display: u.NLName,
	}))
}

func (g *Loinc) valueSet(pctx *pipeline.Context) *resource.ValueSet {
	id := "Labconcepts" + pctx.Version
	vs := &resource.ValueSet{
		Metadata: resource.NewMetadata(resource.TypeValueSet, id, loincValueSetURL, pctx.Version,
			loincValueSetTitle, loincValueSetDescription+" "+pctx.Version, resource.StatusActive),
	}
	vs.Identifier = []resource.Identifier{{System: resource.OIDSystem, Value: loincValueSetOID}}
	vs.Extension = []resource.Extension{{
		URL:            resource.ValueSetSupplementExtension,
		ValueCanonical: supplementURL + "|" + pctx.Version,
	}}

	include := resource.Include{System: resource.LoincSystem, Version: pctx.LoincVersion}
	seen := make(map[string]struct{}, len(pctx.Publication.LabConcepts))
	for i := range pctx.Publication.LabConcepts {
		code := pctx.Publication.LabConcepts[i].Code()
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		include.Concept = append(include.Concept, resource.ConceptRef{Code: code})
	}
	vs.Compose = &resource.Compose{Include: []resource.Include{include}}
	return vs
}

var (
	_ pipeline.Generator = (*Loinc)(nil)
	_ pipeline.Generator = (*Units)(nil)
	_ pipeline.Generator = (*Materials)(nil)
	_ pipeline.Generator = (*Outcomes)(nil)
)
