package publication

// Tables are the reference indices built once from a publication.
// They are read-only after BuildTables returns and safe for concurrent reads.
type Tables struct {
	materials   map[string]MaterialRef
	definitions map[string]MaterialDefinition
	units     map[string]UnitDefinition
	unitOrder []string
}

// BuildTables indexes every material referenced under every concept by code,
// every publication-level material by id and every publication-level unit by
// id. Duplicate keys overwrite earlier entries.
func BuildTables(pub *Publication) *Tables {
	t := &Tables{
		materials:   make(map[string]MaterialRef),
		definitions: make(map[string]MaterialDefinition, len(pub.Materials)),
		units:       make(map[string]UnitDefinition, len(pub.Units)),
		unitOrder:   make([]string, 0, len(pub.Units)),
	}

	for i := range pub.LabConcepts {
		for _, m := range pub.LabConcepts[i].Materials {
			t.materials[m.Code] = m
		}
	}

	for _, m := range pub.Materials {
		t.definitions[m.ID] = m
	}

	for _, u := range pub.Units {
		if _, seen := t.units[u.ID]; !seen {
			t.unitOrder = append(t.unitOrder, u.ID)
		}
		t.units[u.ID] = u
	}

	return t
}

// Material returns the material indexed under code.
func (t *Tables) Material(code string) (MaterialRef, bool) {
	m, ok := t.materials[code]
	return m, ok
}

// MaterialDefinition returns the publication-level material with the given
// id.
func (t *Tables) MaterialDefinition(id string) (MaterialDefinition, bool) {
	m, ok := t.definitions[id]
	return m, ok
}

// Unit returns the unit definition with the given id.
func (t *Tables) Unit(id string) (UnitDefinition, bool) {
	u, ok := t.units[id]
	return u, ok
}

// Units returns one definition per distinct unit id, in the order the ids
// first appear in the publication.
func (t *Tables) Units() []UnitDefinition {
	out := make([]UnitDefinition, 0, len(t.unitOrder))
	for _, id := range t.unitOrder {
		out = append(out, t.units[id])
	}
	return out
}

// MaterialCount returns the number of indexed material codes.
func (t *Tables) MaterialCount() int {
	return len(t.materials)
}
