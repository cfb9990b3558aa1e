package publication

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrInvalidPublication is returned when a decoded publication lacks the
// fields every run depends on.
var ErrInvalidPublication = errors.New("invalid publication")

// Decode reads a Labcodeset publication from r.
func Decode(r io.Reader) (*Publication, error) {
	var pub Publication
	if err := xml.NewDecoder(r).Decode(&pub); err != nil {
		return nil, fmt.Errorf("failed to parse Labcodeset XML: %w", err)
	}
	if err := pub.validate(); err != nil {
		return nil, err
	}
	return &pub, nil
}

// Load reads a Labcodeset publication from a file.
func Load(path string) (*Publication, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Labcodeset file: %w", err)
	}
	defer f.Close()

	pub, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pub, nil
}

func (p *Publication) validate() error {
	if p.EffectiveDate == "" {
		return fmt.Errorf("%w: missing effectiveDate", ErrInvalidPublication)
	}
	for i := range p.LabConcepts {
		if p.LabConcepts[i].Loinc.LoincNum == "" {
			return fmt.Errorf("%w: labConcept %d has no loinc_num", ErrInvalidPublication, i)
		}
	}
	return nil
}
