// Package resource defines the FHIR R4 terminology resources emitted by the
// transform and the assembler that collects them into a Bundle.
//
// The structs carry only the elements the transform populates and marshal to
// FHIR JSON. Resources are immutable once handed to an Assembler.
package resource

// Resource types.
const (
	TypeCodeSystem = "CodeSystem"
	TypeValueSet   = "ValueSet"
	TypeConceptMap = "ConceptMap"
	TypeBundle     = "Bundle"
)

// Resource is a generated FHIR resource.
type Resource interface {
	ResourceType() string
	ResourceID() string
	ResourceVersion() string
	ResourceURL() string
}

// Coding is a FHIR Coding.
type Coding struct {
	System  string `json:"system,omitempty"`
	Version string `json:"version,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// Identifier is a FHIR Identifier.
type Identifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Extension is a FHIR Extension with a canonical value.
type Extension struct {
	URL            string `json:"url"`
	ValueCanonical string `json:"valueCanonical,omitempty"`
}

// Metadata holds the identity elements shared by canonical resources.
type Metadata struct {
	Type         string       `json:"resourceType"`
	ID           string       `json:"id"`
	Language     string       `json:"language,omitempty"`
	Extension    []Extension  `json:"extension,omitempty"`
	URL          string       `json:"url,omitempty"`
	Identifier   []Identifier `json:"identifier,omitempty"`
	Version      string       `json:"version,omitempty"`
	Name         string       `json:"name,omitempty"`
	Title        string       `json:"title,omitempty"`
	Status       string       `json:"status"`
	Experimental bool         `json:"experimental"`
	Publisher    string       `json:"publisher,omitempty"`
	Description  string       `json:"description,omitempty"`
	Copyright    string       `json:"copyright,omitempty"`
}

// NewMetadata returns metadata carrying the fixed Labcodeset publisher,
// copyright and language.
func NewMetadata(resourceType, id, url, version, title, description, status string) Metadata {
	return Metadata{
		Type:        resourceType,
		ID:          id,
		Language:    Language,
		URL:         url,
		Version:     version,
		Name:        id,
		Title:       title,
		Status:      status,
		Publisher:   Publisher,
		Description: description,
		Copyright:   Copyright,
	}
}

// ResourceType implements Resource.
func (m *Metadata) ResourceType() string { return m.Type }

// ResourceID implements Resource.
func (m *Metadata) ResourceID() string { return m.ID }

// ResourceVersion implements Resource.
func (m *Metadata) ResourceVersion() string { return m.Version }

// ResourceURL implements Resource.
func (m *Metadata) ResourceURL() string { return m.URL }

// CodeSystem is a FHIR CodeSystem, used here as a supplement or fragment.
type CodeSystem struct {
	Metadata
	ValueSet    string        `json:"valueSet,omitempty"`
	Content     string        `json:"content"`
	Supplements string        `json:"supplements,omitempty"`
	Count       int           `json:"count,omitempty"`
	Property    []PropertyDef `json:"property,omitempty"`
	Concept     []Concept     `json:"concept,omitempty"`
}

// PropertyDef declares a concept property on a CodeSystem.
type PropertyDef struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
}

// Concept is a CodeSystem concept definition.
type Concept struct {
	Code        string            `json:"code"`
	Display     string            `json:"display,omitempty"`
	Designation []Designation     `json:"designation,omitempty"`
	Property    []ConceptProperty `json:"property,omitempty"`
}

// Designation is an additional representation of a concept.
type Designation struct {
	Language string  `json:"language,omitempty"`
	Use      *Coding `json:"use,omitempty"`
	Value    string  `json:"value"`
}

// ConceptProperty is a property value on a concept. Exactly one value is set.
type ConceptProperty struct {
	Code        string  `json:"code"`
	ValueString *string `json:"valueString,omitempty"`
	ValueCoding *Coding `json:"valueCoding,omitempty"`
}

// StringProperty returns a string-valued concept property.
func StringProperty(code, value string) ConceptProperty {
	return ConceptProperty{Code: code, ValueString: &value}
}

// CodingProperty returns a Coding-valued concept property.
func CodingProperty(code string, value Coding) ConceptProperty {
	return ConceptProperty{Code: code, ValueCoding: &value}
}

// ValueSet is a FHIR ValueSet with an explicit compose.
type ValueSet struct {
	Metadata
	Compose *Compose `json:"compose,omitempty"`
}

// Compose is ValueSet.compose.
type Compose struct {
	Include []Include `json:"include"`
}

// Include is ValueSet.compose.include.
type Include struct {
	System  string       `json:"system,omitempty"`
	Version string       `json:"version,omitempty"`
	Concept []ConceptRef `json:"concept,omitempty"`
}

// ConceptRef is ValueSet.compose.include.concept.
type ConceptRef struct {
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

// ConceptMap is a FHIR R4 ConceptMap.
type ConceptMap struct {
	Metadata
	Group []Group `json:"group,omitempty"`
}

// Group is ConceptMap.group.
type Group struct {
	Source        string    `json:"source,omitempty"`
	SourceVersion string    `json:"sourceVersion,omitempty"`
	Target        string    `json:"target,omitempty"`
	TargetVersion string    `json:"targetVersion,omitempty"`
	Element       []Element `json:"element"`
}

// Element is ConceptMap.group.element.
type Element struct {
	Code    string   `json:"code"`
	Display string   `json:"display,omitempty"`
	Target  []Target `json:"target"`
}

// Target is ConceptMap.group.element.target.
type Target struct {
	Code        string `json:"code,omitempty"`
	Display     string `json:"display,omitempty"`
	Equivalence string `json:"equivalence"`
}

var (
	_ Resource = (*CodeSystem)(nil)
	_ Resource = (*ValueSet)(nil)
	_ Resource = (*ConceptMap)(nil)
)
