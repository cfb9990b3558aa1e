package terminology

import (
	"context"
	"errors"
)

// Code system URIs looked up by the transform.
const (
	LoincSystem     = "http://loinc.org"
	SnomedSystem    = "http://snomed.info/sct"
	SnomedNLEdition = "http://snomed.info/sct/11000146104"
)

// ErrNotFound is returned by a Client when the server does not know the code.
var ErrNotFound = errors.New("concept not found")

// Key identifies one lookup.
type Key struct {
	Code    string
	System  string
	Version string
}

// String returns the key as system|version|code.
func (k Key) String() string {
	return k.System + "|" + k.Version + "|" + k.Code
}

// Property is one property returned by a full $lookup.
// Value holds the code or primitive value; Display is set for Coding values.
type Property struct {
	Name    string `json:"name"`
	Value   string `json:"value,omitempty"`
	Display string `json:"display,omitempty"`
}

// Client performs remote $lookup operations.
type Client interface {
	// LookupDisplay returns the display of code. An empty display with a nil
	// error means the server answered without a display parameter.
	LookupDisplay(ctx context.Context, code, system, version string) (string, error)

	// LookupProperties returns every property of code in response order.
	LookupProperties(ctx context.Context, code, system, version string) ([]Property, error)
}
