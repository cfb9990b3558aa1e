package terminology

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gofhir/fhirpath"
	"github.com/gofhir/fhirpath/types"
)

// Expressions evaluated against raw server responses.
const (
	exprNotFound = "issue.where(code = 'not-found' or code = 'code-invalid').exists()"
)

// ResponseProbe answers boolean FHIRPath questions about raw $lookup
// responses. Compiled expressions are cached; a ResponseProbe is safe for
// concurrent use.
type ResponseProbe struct {
	mu    sync.RWMutex
	cache map[string]*fhirpath.Expression
}

// NewResponseProbe creates a probe with an empty expression cache.
func NewResponseProbe() *ResponseProbe {
	return &ResponseProbe{
		cache: make(map[string]*fhirpath.Expression),
	}
}

// NotFound reports whether body is an OperationOutcome saying the code is
// unknown to the server.
func (p *ResponseProbe) NotFound(body []byte) bool {
	if !strings.Contains(string(body), "OperationOutcome") {
		return false
	}
	ok, err := p.Evaluate(exprNotFound, body)
	return err == nil && ok
}

// Evaluate evaluates expression against a JSON resource and converts the
// result using FHIRPath truthiness rules.
func (p *ResponseProbe) Evaluate(expression string, resource []byte) (bool, error) {
	compiled, err := p.getOrCompile(expression)
	if err != nil {
		return false, fmt.Errorf("failed to compile FHIRPath expression '%s': %w", expression, err)
	}

	result, err := compiled.Evaluate(resource)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate FHIRPath expression '%s': %w", expression, err)
	}
	return toBool(result), nil
}

func (p *ResponseProbe) getOrCompile(expression string) (*fhirpath.Expression, error) {
	p.mu.RLock()
	compiled, ok := p.cache[expression]
	p.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := fhirpath.Compile(expression)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[expression] = compiled
	p.mu.Unlock()
	return compiled, nil
}

// toBool converts a FHIRPath result collection to a boolean:
// empty is false, a single boolean is its value, anything else is true.
func toBool(result types.Collection) bool {
	if len(result) == 0 {
		return false
	}
	if len(result) == 1 {
		if b, ok := result[0].(types.Boolean); ok {
			return b.Bool()
		}
	}
	return true
}
