package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofhir/labcodeset/pkg/issue"
	"github.com/gofhir/labcodeset/publication"
	"github.com/gofhir/labcodeset/resource"
)

func TestOutcomes_Fixture(t *testing.T) {
	pctx := newContext(loadFixture(t))
	entries := run(t, NewOutcomes(), pctx)
	require.Equal(t, []resource.Role{resource.RoleOutcomeConceptMap, resource.RoleOrdinalValueSet}, roles(entries))

	cm := entries[0].Resource.(*resource.ConceptMap)
	assert.Equal(t, "Labconcepts-outcomes-2022", cm.ID)
	assert.Equal(t, resource.URIPrefix+"/cm/labconcepts-outcomes", cm.URL)
	require.Len(t, cm.Group, 2)

	sct, oid := cm.Group[0], cm.Group[1]
	assert.Equal(t, resource.SnomedSystem, sct.Target)
	assert.Equal(t, resource.SnomedNLEdition, sct.TargetVersion)
	require.Len(t, sct.Element, 1)
	assert.Equal(t, "2345-7", sct.Element[0].Code)
	assert.Equal(t, resource.Target{Code: "11000146107", Display: "Uitslagen refset", Equivalence: resource.EquivalenceRelatedTo}, sct.Element[0].Target[0])

	assert.Equal(t, resource.OIDSystem, oid.Target)
	assert.Empty(t, oid.TargetVersion)
	require.Len(t, oid.Element, 1)
	assert.Equal(t, "883-9", oid.Element[0].Code)
	assert.Equal(t, "ABO group [Type] in Blood", oid.Element[0].Display)
	assert.Equal(t, "2.16.840.1.113883.2.4.3.11.60.40.2.13.1", oid.Element[0].Target[0].Code)
}

func TestOutcomes_Grouping(t *testing.T) {
	refset := func(code string) publication.LabConcept {
		return publication.LabConcept{
			Loinc:   publication.LoincConcept{LoincNum: code},
			Outcome: &publication.Outcome{Refset: &publication.Refset{ConceptID: "R" + code, PreferredTerm: "refset " + code}},
		}
	}
	valueSet := func(code string) publication.LabConcept {
		return publication.LabConcept{
			Loinc:   publication.LoincConcept{LoincNum: code},
			Outcome: &publication.Outcome{ValueSet: &publication.ValueSetRef{Ref: "1.2." + code}},
		}
	}
	pub := &publication.Publication{LabConcepts: []publication.LabConcept{
		refset("1"), valueSet("2"), refset("3"), valueSet("4"),
		{Loinc: publication.LoincConcept{LoincNum: "5"}},
		{Loinc: publication.LoincConcept{LoincNum: "6"}, Outcome: &publication.Outcome{}},
	}}
	pctx := newContext(pub)

	entries := run(t, NewOutcomes(), pctx)
	cm := entries[0].Resource.(*resource.ConceptMap)
	require.Len(t, cm.Group, 2)

	for _, g := range cm.Group {
		for _, el := range g.Element {
			isRefset := el.Target[0].Code[0] == 'R'
			if g.Target == resource.SnomedSystem {
				assert.True(t, isRefset, "value set pointer %s in the SNOMED CT group", el.Code)
			} else {
				assert.False(t, isRefset, "refset pointer %s in the identifier group", el.Code)
			}
		}
	}
	assert.Len(t, cm.Group[0].Element, 2)
	assert.Len(t, cm.Group[1].Element, 2)

	unmappable := pctx.Issues.ByID(issue.DiagOutcomeUnmappable)
	require.Len(t, unmappable, 1)
	assert.Contains(t, unmappable[0].Diagnostics, "6")
	assert.Equal(t, []string{"/publication/labConcepts/labConcept[6]/outcomes"}, unmappable[0].Expression)
}

func TestOutcomes_SingleKindOmitsEmptyGroup(t *testing.T) {
	pub := &publication.Publication{LabConcepts: []publication.LabConcept{{
		Loinc:   publication.LoincConcept{LoincNum: "1"},
		Outcome: &publication.Outcome{ValueSet: &publication.ValueSetRef{Ref: "1.2.3"}},
	}}}
	entries := run(t, NewOutcomes(), newContext(pub))

	cm := entries[0].Resource.(*resource.ConceptMap)
	require.Len(t, cm.Group, 1)
	assert.Equal(t, resource.OIDSystem, cm.Group[0].Target)
}

func TestOutcomes_OrdinalValueSet(t *testing.T) {
	tests := []struct {
		name      string
		effective string
	}{
		{"date", "2022-03-15"},
		{"date time", "2022-03-15T00:00:00"},
		{"date time with zone", "2022-03-15T10:30:00+01:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &publication.Publication{Ordinals: []publication.Ordinal{{
				ID:            "OUTC1",
				DisplayName:   "Positief/Negatief",
				EffectiveDate: tt.effective,
				Concepts:      []publication.OrdinalConcept{{Code: "10828004"}, {Code: "260385009"}},
			}}}

			entries := run(t, NewOutcomes(), newContext(pub))
			require.Len(t, entries, 2)
			vs := entries[1].Resource.(*resource.ValueSet)

			assert.Equal(t, "20220315", vs.Version)
			assert.Equal(t, "Labconcepts-OUTC1-2022", vs.ID)
			assert.Equal(t, "Labconcepts-OUTC1-2022", vs.Name)
			assert.Equal(t, resource.URIPrefix+"/labconcepts-ordinal-OUTC1", vs.URL)
			assert.Equal(t, "Labcodeset ordinal 'Positief/Negatief' set", vs.Title)
			assert.Equal(t, []resource.Identifier{{System: resource.OIDSystem, Value: "OUTC1"}}, vs.Identifier)

			require.Len(t, vs.Compose.Include, 1)
			assert.Equal(t, resource.SnomedSystem, vs.Compose.Include[0].System)
			assert.Equal(t, []resource.ConceptRef{{Code: "10828004"}, {Code: "260385009"}}, vs.Compose.Include[0].Concept)
		})
	}
}

func TestOutcomes_InvalidOrdinalDate(t *testing.T) {
	pub := &publication.Publication{Ordinals: []publication.Ordinal{{ID: "OUTC2", EffectiveDate: "15-03-2022"}}}

	_, err := NewOutcomes().Generate(context.Background(), newContext(pub))
	require.Error(t, err)
	var die *DataIntegrityError
	require.ErrorAs(t, err, &die)
	assert.Equal(t, "OUTC2", die.Ref)
	assert.Equal(t, "effectiveDate", die.Field)
}
