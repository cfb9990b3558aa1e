package issue

import (
	"fmt"
	"strings"
)

// DiagnosticID identifies a specific diagnostic message.
type DiagnosticID string

// Diagnostic IDs raised by the lookup cache.
const (
	DiagLookupDisplayFallback DiagnosticID = "LOOKUP_DISPLAY_FALLBACK"
	DiagLookupNoProperties    DiagnosticID = "LOOKUP_NO_PROPERTIES"
)

// Diagnostic IDs raised by the units generator.
const (
	DiagUnitNone        DiagnosticID = "UNIT_NONE"
	DiagUnitRefNotFound DiagnosticID = "UNIT_REF_NOT_FOUND"
	DiagUnitNoEnglish   DiagnosticID = "UNIT_NO_ENGLISH_NAME"
)

// Diagnostic IDs raised by the materials generator.
const (
	DiagMaterialNotActive   DiagnosticID = "MATERIAL_NOT_ACTIVE"
	DiagMaterialRefNotFound DiagnosticID = "MATERIAL_REF_NOT_FOUND"
)

// Diagnostic IDs raised by the outcome generator.
const (
	DiagOutcomeUnmappable DiagnosticID = "OUTCOME_UNMAPPABLE"
)

// Diagnostic IDs raised by the LOINC generator.
const (
	DiagLoincNoTranslation      DiagnosticID = "LOINC_NO_TRANSLATION"
	DiagLoincNoTranslatedName   DiagnosticID = "LOINC_NO_TRANSLATED_NAME"
	DiagLoincPartUnresolved     DiagnosticID = "LOINC_PART_UNRESOLVED"
	DiagLoincPartNotTranslated  DiagnosticID = "LOINC_PART_NOT_TRANSLATED"
	DiagLoincUnitRefNotFound    DiagnosticID = "LOINC_UNIT_REF_NOT_FOUND"
	DiagLoincMaterialRefMissing DiagnosticID = "LOINC_MATERIAL_REF_MISSING"
)

// DiagnosticTemplate defines a diagnostic message template.
type DiagnosticTemplate struct {
	ID       DiagnosticID
	Severity Severity
	Code     Code
	Template string
}

// diagnosticTemplates maps diagnostic IDs to their templates.
var diagnosticTemplates = map[DiagnosticID]DiagnosticTemplate{
	DiagLookupDisplayFallback: {
		Severity: SeverityWarning,
		Code:     CodeNotFound,
		Template: "Concept {code} not found in {system} {version}, using display '{fallback}' from the publication",
	},
	DiagLookupNoProperties: {
		Severity: SeverityInformation,
		Code:     CodeIncomplete,
		Template: "Lookup of {code} in {system} {version} returned no properties",
	},
	DiagUnitNone: {
		Severity: SeverityInformation,
		Code:     CodeInformational,
		Template: "Concept {code} has no unit, no UCUM mapping created",
	},
	DiagUnitRefNotFound: {
		Severity: SeverityWarning,
		Code:     CodeNotFound,
		Template: "Unable to find unit for reference {ref} on {code}",
	},
	DiagUnitNoEnglish: {
		Severity: SeverityWarning,
		Code:     CodeIncomplete,
		Template: "UCUM expression {rm} has no English name in the publication",
	},
	DiagMaterialNotActive: {
		Severity: SeverityWarning,
		Code:     CodeBusinessRule,
		Template: "All materials should be active, yet material {code} is {status}",
	},
	DiagMaterialRefNotFound: {
		Severity: SeverityWarning,
		Code:     CodeNotFound,
		Template: "Unable to find material {material} referenced by {code}, element skipped",
	},
	DiagOutcomeUnmappable: {
		Severity: SeverityWarning,
		Code:     CodeInvalid,
		Template: "Unable to map outcome of concept {code}: neither a refset nor a value set is referenced",
	},
	DiagLoincNoTranslation: {
		Severity: SeverityWarning,
		Code:     CodeIncomplete,
		Template: "No translation for {code}",
	},
	DiagLoincNoTranslatedName: {
		Severity: SeverityWarning,
		Code:     CodeIncomplete,
		Template: "No translated long name for {code}",
	},
	DiagLoincPartUnresolved: {
		Severity: SeverityWarning,
		Code:     CodeNotFound,
		Template: "Not setting translation '{label}' for property {axis} of {code}: the LOINC part code cannot be retrieved for this code",
	},
	DiagLoincPartNotTranslated: {
		Severity: SeverityInformation,
		Code:     CodeIncomplete,
		Template: "Property {axis} of {code} has part {part} but no local translation, property omitted",
	},
	DiagLoincUnitRefNotFound: {
		Severity: SeverityWarning,
		Code:     CodeNotFound,
		Template: "Could not find unit for reference {ref} on {code}, omitting EXAMPLE_UCUM_UNITS",
	},
	DiagLoincMaterialRefMissing: {
		Severity: SeverityWarning,
		Code:     CodeRequired,
		Template: "Material reference without a code on {code}, omitting MATERIAL",
	},
}

// NewIssue builds an Issue from the diagnostic catalog.
// Unknown IDs produce a processing error carrying the raw id.
func NewIssue(id DiagnosticID, source string, params map[string]any, expression ...string) Issue {
	tmpl, ok := diagnosticTemplates[id]
	if !ok {
		return Issue{
			Severity:    SeverityError,
			Code:        CodeProcessing,
			Diagnostics: string(id),
			Expression:  expression,
			Source:      source,
			MessageID:   string(id),
		}
	}
	return Issue{
		Severity:    tmpl.Severity,
		Code:        tmpl.Code,
		Diagnostics: formatTemplate(tmpl.Template, params),
		Expression:  expression,
		Source:      source,
		MessageID:   string(id),
	}
}

// FormatDiagnostic formats a diagnostic message with the given parameters.
func FormatDiagnostic(id DiagnosticID, params map[string]any) string {
	tmpl, ok := diagnosticTemplates[id]
	if !ok {
		return string(id)
	}
	return formatTemplate(tmpl.Template, params)
}

// GetDiagnosticTemplate returns the template for a diagnostic ID.
func GetDiagnosticTemplate(id DiagnosticID) (DiagnosticTemplate, bool) {
	tmpl, ok := diagnosticTemplates[id]
	if ok {
		tmpl.ID = id
	}
	return tmpl, ok
}

// formatTemplate replaces {placeholder} with values from params.
func formatTemplate(template string, params map[string]any) string {
	result := template
	for key, value := range params {
		placeholder := "{" + key + "}"
		result = strings.ReplaceAll(result, placeholder, fmt.Sprint(value))
	}
	return result
}
