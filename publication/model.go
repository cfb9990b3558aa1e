// Package publication models a parsed Labcodeset publication and the
// reference tables built from it.
//
// The model is read-only once decoded. Optional elements are pointers so
// that an absent element can be told apart from an empty one.
package publication

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// StatusActive is the status value of an active material or concept.
const StatusActive = "active"

// Publication is the root of a Labcodeset release.
type Publication struct {
	XMLName       xml.Name             `xml:"publication"`
	EffectiveDate string               `xml:"effectiveDate,attr"`
	LabConcepts   []LabConcept         `xml:"labConcepts>labConcept"`
	Materials     []MaterialDefinition `xml:"materials>material"`
	Units         []UnitDefinition     `xml:"units>unit"`
	Ordinals      []Ordinal            `xml:"ordinals>valueSet"`
}

// LabConcept is one laboratory test entry.
type LabConcept struct {
	Status    string        `xml:"status,attr"`
	Loinc     LoincConcept  `xml:"loincConcept"`
	Materials []MaterialRef `xml:"materials>material"`
	Unit      *UnitRef      `xml:"units>unit"`
	Outcome   *Outcome      `xml:"outcomes"`
}

// Code returns the primary LOINC code of the concept.
func (c *LabConcept) Code() string {
	return c.Loinc.LoincNum
}

// Display returns the translated long name when present, otherwise the
// original long name.
func (c *LabConcept) Display() string {
	if t := c.Loinc.Translation; t != nil && t.LongName != nil {
		return *t.LongName
	}
	return c.Loinc.LongName
}

// LoincConcept carries the primary code with its original and translated
// names and axes.
type LoincConcept struct {
	LoincNum    string       `xml:"loinc_num,attr"`
	LongName    string       `xml:"longName"`
	Translation *Translation `xml:"translation"`
}

// Translation holds the Dutch rendering of a LOINC concept.
// A nil axis means the publication carries no translation for it.
type Translation struct {
	LongName  *string `xml:"longName"`
	Component *string `xml:"component"`
	Property  *string `xml:"property"`
	Timing    *string `xml:"timing"`
	System    *string `xml:"system"`
	Scale     *string `xml:"scale"`
	Method    *string `xml:"method"`
	Class     *string `xml:"class"`
	OrderObs  *string `xml:"orderObs"`
}

// MaterialRef is a specimen material referenced by a concept.
type MaterialRef struct {
	Ref         string `xml:"ref,attr"`
	Code        string `xml:"code,attr"`
	DisplayName string `xml:"displayName,attr"`
	Status      string `xml:"status,attr"`
}

// MaterialDefinition is a publication-level material.
type MaterialDefinition struct {
	ID          string `xml:"id,attr"`
	Code        string `xml:"code,attr"`
	DisplayName string `xml:"displayName,attr"`
	Status      string `xml:"status,attr"`
}

// Active reports whether the material is active. A missing status counts
// as active.
func (m MaterialDefinition) Active() bool {
	return m.Status == "" || m.Status == StatusActive
}

// UnitRef points at a publication-level unit definition.
type UnitRef struct {
	Ref string `xml:"ref,attr"`
}

// UnitDefinition is a publication-level unit.
type UnitDefinition struct {
	ID     string `xml:"id,attr"`
	RM     string `xml:"rm,attr"`
	NLName string `xml:"nlname,attr"`
	Name   string `xml:"name,attr"`
}

// Outcome points at either a SNOMED CT reference set or a value set.
type Outcome struct {
	Refset   *Refset      `xml:"refset"`
	ValueSet *ValueSetRef `xml:"valueSet"`
}

// Refset is a coded reference-set pointer.
type Refset struct {
	ConceptID     string `xml:"conceptId,attr"`
	PreferredTerm string `xml:"preferredTerm,attr"`
}

// ValueSetRef is a named value-set pointer, usually an OID.
type ValueSetRef struct {
	Ref string `xml:"ref,attr"`
}

// Ordinal is a named literal code list.
type Ordinal struct {
	ID            string           `xml:"id,attr"`
	DisplayName   string           `xml:"displayName,attr"`
	EffectiveDate string           `xml:"effectiveDate,attr"`
	Concepts      []OrdinalConcept `xml:"conceptList>concept"`
}

// OrdinalConcept is one code of an ordinal list.
type OrdinalConcept struct {
	Code string `xml:"code,attr"`
}

// Version returns the publication version: the year of its effective date.
func (p *Publication) Version() string {
	return strings.Split(p.EffectiveDate, "-")[0]
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02Z07:00",
	"2006-01-02",
}

// ParseDate parses an xs:date or xs:dateTime value.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
