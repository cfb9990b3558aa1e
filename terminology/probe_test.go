package terminology

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const lookupResponse = `{
  "resourceType": "Parameters",
  "parameter": [
    {"name": "name", "valueString": "LOINC"},
    {"name": "display", "valueString": "Glucose [Mass/volume] in Serum or Plasma"},
    {"name": "property", "part": [
      {"name": "code", "valueCode": "COMPONENT"},
      {"name": "value", "valueCoding": {"system": "http://loinc.org", "code": "LP14635-4", "display": "Glucose"}}
    ]}
  ]
}`

const notFoundOutcome = `{
  "resourceType": "OperationOutcome",
  "issue": [{"severity": "error", "code": "not-found", "diagnostics": "Unknown code"}]
}`

const serverErrorOutcome = `{
  "resourceType": "OperationOutcome",
  "issue": [{"severity": "error", "code": "exception"}]
}`

func TestResponseProbe_NotFound(t *testing.T) {
	p := NewResponseProbe()

	assert.True(t, p.NotFound([]byte(notFoundOutcome)))
	assert.False(t, p.NotFound([]byte(serverErrorOutcome)))
	assert.False(t, p.NotFound([]byte("<html>not found</html>")))
}

func TestResponseProbe_CachesCompiledExpressions(t *testing.T) {
	p := NewResponseProbe()

	for i := 0; i < 3; i++ {
		p.NotFound([]byte(notFoundOutcome))
	}
	assert.Len(t, p.cache, 1)

	ok, err := p.Evaluate("parameter.where(name = 'display').exists()", []byte(lookupResponse))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, p.cache, 2)
}

func TestResponseProbe_InvalidExpression(t *testing.T) {
	p := NewResponseProbe()

	_, err := p.Evaluate("parameter.where(", []byte(lookupResponse))
	assert.Error(t, err)
}
