package generator

import (
	"github.com/gofhir/labcodeset/publication"
	"github.com/gofhir/labcodeset/resource"
)

// LOINC property names used on the supplement.
const (
	PropertyStatus   = "STATUS"
	PropertyMaterial = "MATERIAL"
	PropertyUnits    = "EXAMPLE_UCUM_UNITS"
	PropertyClass    = "CLASS"
	PropertyOrderObs = "ORDER_OBS"

	AxisMethod    = "METHOD_TYP"
	AxisTime      = "TIME_ASPCT"
	AxisSystem    = "SYSTEM"
	AxisScale     = "SCALE_TYP"
	AxisProperty  = "PROPERTY"
	AxisComponent = "COMPONENT"
)

// Axis ties a LOINC part property to its translated label.
type Axis struct {
	// Name is the LOINC property name, also used on the supplement
	Name string

	// Description documents the property on the supplement
	Description string

	// Label returns the translated label, nil when not translated
	Label func(*publication.Translation) *string
}

// Axes are the coded LOINC part axes, in declaration order.
var Axes = []Axis{
	{Name: AxisMethod, Description: "Labcodeset translation of LOINC METHOD_TYP", Label: func(t *publication.Translation) *string { return t.Method }},
	{Name: AxisTime, Description: "Labcodeset translation of LOINC TIME_ASPCT", Label: func(t *publication.Translation) *string { return t.Timing }},
	{Name: AxisSystem, Description: "Labcodeset translation of LOINC SYSTEM", Label: func(t *publication.Translation) *string { return t.System }},
	{Name: AxisScale, Description: "Labcodeset translation of LOINC SCALE", Label: func(t *publication.Translation) *string { return t.Scale }},
	{Name: AxisProperty, Description: "Labcodeset translation of LOINC PROPERTY", Label: func(t *publication.Translation) *string { return t.Property }},
	{Name: AxisComponent, Description: "Labcodeset translation of LOINC COMPONENT", Label: func(t *publication.Translation) *string { return t.Component }},
}

var axisByName = func() map[string]*Axis {
	m := make(map[string]*Axis, len(Axes))
	for i := range Axes {
		m[Axes[i].Name] = &Axes[i]
	}
	return m
}()

// supplementProperties declares every property used on the supplement.
func supplementProperties() []resource.PropertyDef {
	props := []resource.PropertyDef{
		{Code: PropertyStatus, Description: "Labcodeset LOINC concept status", Type: resource.PropertyTypeString},
		{Code: PropertyMaterial, Description: "Labcodeset SNOMED CT material", Type: resource.PropertyTypeCoding},
		{Code: PropertyUnits, Description: "Labcodeset UCUM units", Type: resource.PropertyTypeCoding},
		{Code: PropertyClass, Description: "Labcodeset translation of LOINC CLASS", Type: resource.PropertyTypeString},
		{Code: PropertyOrderObs, Description: "Labcodeset translation of LOINC ORDER_OBS", Type: resource.PropertyTypeString},
	}
	for _, a := range Axes {
		props = append(props, resource.PropertyDef{Code: a.Name, Description: a.Description, Type: resource.PropertyTypeCoding})
	}
	return props
}

// partSet records the LOINC part codes already emitted as concepts.
type partSet map[string]struct{}

// add reports whether code was not yet in the set.
func (s partSet) add(code string) bool {
	if _, ok := s[code]; ok {
		return false
	}
	s[code] = struct{}{}
	return true
}
