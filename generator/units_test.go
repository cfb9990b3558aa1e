package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofhir/labcodeset/pipeline"
	"github.com/gofhir/labcodeset/pkg/issue"
	"github.com/gofhir/labcodeset/publication"
	"github.com/gofhir/labcodeset/resource"
)

func TestUnits_Fixture(t *testing.T) {
	common := &staticUnits{units: []resource.Coding{
		{System: resource.UcumSystem, Code: "g/L", Display: "gram per liter (common)"},
		{System: resource.UcumSystem, Code: "%", Display: "percent"},
		{System: resource.UcumSystem, Code: "%", Display: "percent again"},
		{System: resource.UcumSystem, Code: ""},
	}}
	pctx := newContext(loadFixture(t))

	entries := run(t, NewUnits(common), pctx)
	require.Equal(t, []resource.Role{resource.RoleUcumCodeSystem, resource.RoleUcumValueSet, resource.RoleUcumConceptMap}, roles(entries))
	assert.Equal(t, 1, common.calls)

	t.Run("code system", func(t *testing.T) {
		cs := entries[0].Resource.(*resource.CodeSystem)
		assert.Equal(t, "Ucum-2.1", cs.ID)
		assert.Equal(t, "Ucum-2.1", cs.Name)
		assert.Equal(t, resource.UcumSystem, cs.URL)
		assert.Equal(t, resource.UcumVersion, cs.Version)
		assert.Equal(t, resource.ContentFragment, cs.Content)
		assert.Equal(t, resource.UcumSystem+"/vs", cs.ValueSet)
		assert.Equal(t, resource.Language, cs.Language)
		assert.Empty(t, cs.Publisher)

		// Local expressions first, then common additions, deduplicated.
		assert.Equal(t, []string{"mg/L", "g/L", "%"}, codes(cs.Concept))
		assert.Equal(t, "milligram per liter", cs.Concept[0].Display)
		require.Len(t, cs.Concept[0].Designation, 1)
		assert.Equal(t, resource.EnglishLanguage, cs.Concept[0].Designation[0].Language)
		assert.Equal(t, "gram per liter", cs.Concept[1].Display, "local display wins over the common set")
		assert.Empty(t, cs.Concept[1].Designation)
		assert.Equal(t, "percent", cs.Concept[2].Display)
	})

	t.Run("value set", func(t *testing.T) {
		vs := entries[1].Resource.(*resource.ValueSet)
		assert.Equal(t, "Labconcepts-ucum-2022", vs.ID)
		assert.Equal(t, "2022", vs.Version)
		assert.Equal(t, resource.URIPrefix+"/vs/labconcepts-ucum", vs.URL)
		require.Len(t, vs.Compose.Include, 1)
		assert.Equal(t, resource.UcumSystem, vs.Compose.Include[0].System)
		assert.Equal(t, []string{"mg/L", "g/L"}, refCodes(vs.Compose.Include[0].Concept), "common codes are not in the value set")
	})

	t.Run("concept map", func(t *testing.T) {
		cm := entries[2].Resource.(*resource.ConceptMap)
		assert.Equal(t, "Labconcepts-ucum-2022", cm.ID)
		require.Len(t, cm.Group, 1)
		g := cm.Group[0]
		assert.Equal(t, resource.LoincSystem, g.Source)
		assert.Equal(t, "2.72", g.SourceVersion)
		assert.Equal(t, resource.UcumSystem, g.Target)
		assert.Equal(t, resource.UcumVersion, g.TargetVersion)
		require.Len(t, g.Element, 1)
		assert.Equal(t, "2345-7", g.Element[0].Code)
		assert.Equal(t, "Glucose [massa/volume] in serum of plasma", g.Element[0].Display)
		assert.Equal(t, []resource.Target{{Code: "mg/L", Display: "milligram per liter", Equivalence: resource.EquivalenceRelatedTo}}, g.Element[0].Target)
	})

	t.Run("diagnostics", func(t *testing.T) {
		assert.Len(t, pctx.Issues.ByID(issue.DiagUnitNoEnglish), 1)
		none := pctx.Issues.ByID(issue.DiagUnitNone)
		require.Len(t, none, 1)
		assert.Contains(t, none[0].Diagnostics, "883-9")
	})
}

// X1 references U1 which resolves to mg/L; X2 has no unit.
func unitScenario() *publication.Publication {
	return &publication.Publication{
		LabConcepts: []publication.LabConcept{
			{Status: "active", Loinc: publication.LoincConcept{LoincNum: "X1", LongName: "X one"}, Unit: &publication.UnitRef{Ref: "U1"}},
			{Status: "active", Loinc: publication.LoincConcept{LoincNum: "X2", LongName: "X two"}},
		},
		Units: []publication.UnitDefinition{{ID: "U1", RM: "mg/L", NLName: "milligram per liter", Name: "milligram per liter"}},
	}
}

func TestUnits_UnitMapped(t *testing.T) {
	pctx := newContext(unitScenario())
	entries := run(t, NewUnits(nil), pctx)

	cm := entries[2].Resource.(*resource.ConceptMap)
	require.Len(t, cm.Group, 1)
	require.Len(t, cm.Group[0].Element, 1)
	el := cm.Group[0].Element[0]
	assert.Equal(t, "X1", el.Code)
	require.Len(t, el.Target, 1)
	assert.Equal(t, "mg/L", el.Target[0].Code)
}

func TestUnits_NoUnitSkipped(t *testing.T) {
	pctx := newContext(unitScenario())
	entries := run(t, NewUnits(nil), pctx)

	cm := entries[2].Resource.(*resource.ConceptMap)
	for _, g := range cm.Group {
		for _, el := range g.Element {
			assert.NotEqual(t, "X2", el.Code)
		}
	}

	issues := pctx.Issues.Issues()
	require.Len(t, issues, 1, "only the skip note")
	assert.Equal(t, string(issue.DiagUnitNone), issues[0].MessageID)
	assert.Equal(t, issue.SeverityInformation, issues[0].Severity)
}

func TestUnits_UnresolvedReference(t *testing.T) {
	pub := unitScenario()
	pub.LabConcepts[1].Unit = &publication.UnitRef{Ref: "U9"}
	pctx := newContext(pub)

	entries := run(t, NewUnits(nil), pctx)
	cm := entries[2].Resource.(*resource.ConceptMap)
	assert.Len(t, cm.Group[0].Element, 1)

	missing := pctx.Issues.ByID(issue.DiagUnitRefNotFound)
	require.Len(t, missing, 1)
	assert.Equal(t, "Unable to find unit for reference U9 on X2", missing[0].Diagnostics)
	assert.Equal(t, issue.SeverityWarning, missing[0].Severity)
}

func TestUnits_NoMappedConceptsOmitsGroup(t *testing.T) {
	pub := unitScenario()
	pub.LabConcepts = pub.LabConcepts[1:]
	entries := run(t, NewUnits(nil), newContext(pub))

	cm := entries[2].Resource.(*resource.ConceptMap)
	assert.Empty(t, cm.Group)
}

func TestUnits_DataIntegrity(t *testing.T) {
	tests := []struct {
		name  string
		unit  publication.UnitDefinition
		field string
	}{
		{"missing expression", publication.UnitDefinition{ID: "U7", NLName: "x"}, "rm"},
		{"missing Dutch name", publication.UnitDefinition{ID: "U8", RM: "mg"}, "nlname"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := unitScenario()
			pub.Units = append(pub.Units, tt.unit)
			common := &staticUnits{}

			entries, err := NewUnits(common).Generate(context.Background(), newContext(pub))
			require.Error(t, err)
			assert.Nil(t, entries)
			assert.True(t, IsDataIntegrity(err))

			var die *DataIntegrityError
			require.ErrorAs(t, err, &die)
			assert.Equal(t, tt.field, die.Field)
			assert.Equal(t, tt.unit.ID, die.Ref)
			assert.Zero(t, common.calls, "nothing is fetched for invalid input")
		})
	}
}

func TestUnits_CommonUnitsFailureIsFatal(t *testing.T) {
	boom := errors.New("unreachable")
	_, err := NewUnits(&staticUnits{err: boom}).Generate(context.Background(), newContext(unitScenario()))
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsDataIntegrity(err))
}

func TestUnits_Name(t *testing.T) {
	assert.Equal(t, pipeline.NameUnits, NewUnits(nil).Name())
}
