package labcodeset

import (
	"errors"
	"fmt"
	"regexp"
)

// Version is the tool version, overridden at build time with
// -ldflags "-X github.com/gofhir/labcodeset.Version=...".
var Version = "dev"

// ErrInvalidLoincVersion is returned for a malformed LOINC release version.
var ErrInvalidLoincVersion = errors.New("invalid LOINC version")

// loincVersionPattern matches LOINC release versions such as 2.72.
var loincVersionPattern = regexp.MustCompile(`^\d\.\d{2,}$`)

// ValidateLoincVersion checks that v looks like a LOINC release version.
func ValidateLoincVersion(v string) error {
	if !loincVersionPattern.MatchString(v) {
		return fmt.Errorf("%w %q: expected a release such as 2.72", ErrInvalidLoincVersion, v)
	}
	return nil
}
