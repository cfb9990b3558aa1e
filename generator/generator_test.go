package generator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gofhir/labcodeset/pipeline"
	"github.com/gofhir/labcodeset/pkg/issue"
	"github.com/gofhir/labcodeset/publication"
	"github.com/gofhir/labcodeset/resource"
	"github.com/gofhir/labcodeset/terminology"
)

// fakeLookup answers from maps and falls back like the lookup cache does.
type fakeLookup struct {
	mu         sync.Mutex
	displays   map[string]string
	props      map[string][]terminology.Property
	displayErr error
	propsErr   error
	propCalls  map[string]int
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		displays:  map[string]string{},
		props:     map[string][]terminology.Property{},
		propCalls: map[string]int{},
	}
}

func (f *fakeLookup) ResolveDisplay(_ context.Context, code, _, _, fallback string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.displayErr != nil {
		return "", f.displayErr
	}
	if d, ok := f.displays[code]; ok {
		return d, nil
	}
	return fallback, nil
}

func (f *fakeLookup) ResolveAllProperties(_ context.Context, code, _, _ string) ([]terminology.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.propCalls[code]++
	if f.propsErr != nil {
		return nil, f.propsErr
	}
	return f.props[code], nil
}

type staticUnits struct {
	units []resource.Coding
	err   error
	calls int
}

func (s *staticUnits) CommonUnits(context.Context) ([]resource.Coding, error) {
	s.calls++
	return s.units, s.err
}

func strPtr(s string) *string { return &s }

func loadFixture(t *testing.T) *publication.Publication {
	t.Helper()
	pub, err := publication.Load("../publication/testdata/labcodeset.xml")
	require.NoError(t, err)
	return pub
}

func newContext(pub *publication.Publication) *pipeline.Context {
	if pub.EffectiveDate == "" {
		pub.EffectiveDate = "2022-03-15"
	}
	return pipeline.NewContext(pub, "2.72", nil)
}

func run(t *testing.T, g pipeline.Generator, pctx *pipeline.Context) []resource.Entry {
	t.Helper()
	entries, err := g.Generate(context.Background(), pctx)
	require.NoError(t, err)
	return entries
}

func roles(entries []resource.Entry) []resource.Role {
	out := make([]resource.Role, len(entries))
	for i, e := range entries {
		out[i] = e.Role
	}
	return out
}

func codes(concepts []resource.Concept) []string {
	out := make([]string, len(concepts))
	for i, c := range concepts {
		out[i] = c.Code
	}
	return out
}

func refCodes(refs []resource.ConceptRef) []string {
	out := make([]string, len(refs))
	for i, c := range refs {
		out[i] = c.Code
	}
	return out
}

func ids(issues []issue.Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.MessageID
	}
	return out
}

func findProperty(c resource.Concept, code string) []resource.ConceptProperty {
	var out []resource.ConceptProperty
	for _, p := range c.Property {
		if p.Code == code {
			out = append(out, p)
		}
	}
	return out
}

func findConcept(t *testing.T, concepts []resource.Concept, code string) resource.Concept {
	t.Helper()
	for _, c := range concepts {
		if c.Code == code {
			return c
		}
	}
	t.Fatalf("concept %s not found", code)
	return resource.Concept{}
}
