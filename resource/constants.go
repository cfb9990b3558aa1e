package resource

// Code system and naming URIs.
const (
	LoincSystem     = "http://loinc.org"
	SnomedSystem    = "http://snomed.info/sct"
	SnomedNLEdition = "http://snomed.info/sct/11000146104"
	OIDSystem       = "urn:ietf:rfc:3986"
	UcumSystem      = "http://unitsofmeasure.org"
	UcumVersion     = "2.1"
)

// Metadata shared by every generated resource.
const (
	Language  = "nl-NL"
	Publisher = "Nictiz"
	Copyright = ""
	URIPrefix = "http://labterminologie.nl"
)

// Publication statuses.
const (
	StatusActive = "active"
	StatusDraft  = "draft"
)

// CodeSystem content modes.
const (
	ContentSupplement = "supplement"
	ContentFragment   = "fragment"
)

// Equivalence used for every concept map element.
const EquivalenceRelatedTo = "relatedto"

// Property types declared on code systems.
const (
	PropertyTypeString = "string"
	PropertyTypeCoding = "Coding"
)

// Extension and designation constants.
const (
	ValueSetSupplementExtension = "http://hl7.org/fhir/StructureDefinition/valueset-supplement"
	SynonymCode                 = "900000000000013009"
	SynonymDisplay              = "Synonym"
	EnglishLanguage             = "en"
)

// SynonymUse returns the designation use for an English synonym.
func SynonymUse() *Coding {
	return &Coding{System: SnomedSystem, Code: SynonymCode, Display: SynonymDisplay}
}
