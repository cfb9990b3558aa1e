package resource

import (
	"sync"

	"github.com/google/uuid"
)

// Role names the part a resource plays in a release. The output writer
// derives file names from it.
type Role string

// Resource roles in generator order.
const (
	RoleLoincSupplement    Role = "loinc-supplement"
	RoleLoincValueSet      Role = "loinc-valueset"
	RoleUcumCodeSystem     Role = "ucum-codesystem"
	RoleUcumValueSet       Role = "ucum-valueset"
	RoleUcumConceptMap     Role = "ucum-conceptmap"
	RoleMaterialValueSet   Role = "material-valueset"
	RoleMaterialConceptMap Role = "material-conceptmap"
	RoleOutcomeConceptMap  Role = "outcome-conceptmap"
	RoleOrdinalValueSet    Role = "ordinal-valueset"
)

// Entry is a generated resource with its role.
type Entry struct {
	Role     Role
	Resource Resource
}

// BundleTypeCollection is the only bundle type produced.
const BundleTypeCollection = "collection"

// Bundle is a FHIR collection Bundle.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

// BundleEntry is Bundle.entry.
type BundleEntry struct {
	FullURL  string   `json:"fullUrl"`
	Resource Resource `json:"resource"`
}

// Assembler collects generated resources in the order they are added.
// It is safe for concurrent use.
type Assembler struct {
	mu      sync.Mutex
	version string
	entries []Entry
}

// NewAssembler creates an assembler for the given publication version.
func NewAssembler(version string) *Assembler {
	return &Assembler{version: version}
}

// Add appends entries.
func (a *Assembler) Add(entries ...Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entries...)
}

// Entries returns a copy of the collected entries.
func (a *Assembler) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len returns the number of collected entries.
func (a *Assembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Bundle builds a collection Bundle over the collected resources.
// The bundle id and entry fullUrls are name-based UUIDs, so the same input
// always yields the same bundle.
func (a *Assembler) Bundle() *Bundle {
	entries := a.Entries()
	b := &Bundle{
		ResourceType: TypeBundle,
		ID:           BundleID(a.version),
		Type:         BundleTypeCollection,
		Entry:        make([]BundleEntry, 0, len(entries)),
	}
	for _, e := range entries {
		b.Entry = append(b.Entry, BundleEntry{
			FullURL:  EntryFullURL(e.Resource),
			Resource: e.Resource,
		})
	}
	return b
}

// Version returns the publication version the bundle is built for.
func (a *Assembler) Version() string {
	return a.version
}

// BundleID returns the deterministic bundle id for a publication version.
func BundleID(version string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(URIPrefix+"/bundle/"+version)).String()
}

// EntryFullURL returns the deterministic urn:uuid of a resource.
func EntryFullURL(r Resource) string {
	name := r.ResourceURL() + "|" + r.ResourceVersion() + "|" + r.ResourceType() + "/" + r.ResourceID()
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
