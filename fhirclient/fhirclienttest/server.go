// Package fhirclienttest provides an in-process fake FHIR terminology server
// for tests: CodeSystem/$lookup, a common UCUM units value set and an
// OAuth2 token endpoint.
package fhirclienttest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gofhir/labcodeset/resource"
	"github.com/gofhir/labcodeset/terminology"
)

// Server is a fake terminology server.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	displays    map[string]string
	properties  map[string][]terminology.Property
	failures    map[string]int
	lookups     map[string]int
	units       []resource.Coding
	token       string
	tokenCalls  int
	tokenTTL    time.Duration
	unitsStatus int
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		displays:    map[string]string{},
		properties:  map[string][]terminology.Property{},
		failures:    map[string]int{},
		lookups:     map[string]int{},
		tokenTTL:    time.Hour,
		unitsStatus: http.StatusOK,
	}

	r := chi.NewRouter()
	r.Get("/fhir/CodeSystem/$lookup", s.handleLookup)
	r.Get("/units.json", s.handleUnits)
	r.Post("/token", s.handleToken)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the FHIR base URL.
func (s *Server) BaseURL() string { return s.URL + "/fhir" }

// UnitsURL returns the common units value set URL.
func (s *Server) UnitsURL() string { return s.URL + "/units.json" }

// TokenURL returns the token endpoint URL.
func (s *Server) TokenURL() string { return s.URL + "/token" }

// AddDisplay registers the display of code in system.
func (s *Server) AddDisplay(system, code, display string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displays[system+"|"+code] = display
}

// AddProperties registers the full property set of a LOINC code.
func (s *Server) AddProperties(code string, props ...terminology.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[code] = append(s.properties[code], props...)
}

// Fail makes lookups of code answer with status.
func (s *Server) Fail(code string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[code] = status
}

// SetUnits sets the common units value set content.
func (s *Server) SetUnits(units ...resource.Coding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = units
}

// FailUnits makes the units value set answer with status.
func (s *Server) FailUnits(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unitsStatus = status
}

// RequireToken makes lookups demand a bearer token issued by the token
// endpoint.
func (s *Server) RequireToken(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = "required"
	s.tokenTTL = ttl
}

// Lookups returns how often code was looked up with the given property.
func (s *Server) Lookups(code, property string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups[code+"|"+property]
}

// TokenCalls returns the number of token requests served.
func (s *Server) TokenCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenCalls
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code, system, property := q.Get("code"), q.Get("system"), q.Get("property")

	s.mu.Lock()
	s.lookups[code+"|"+property]++
	token := s.token
	status, failing := s.failures[code]
	display, hasDisplay := s.displays[system+"|"+code]
	props, hasProps := s.properties[code]
	s.mu.Unlock()

	if token != "" && !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeOutcome(w, http.StatusUnauthorized, "login")
		return
	}
	if failing {
		writeOutcome(w, status, outcomeCode(status))
		return
	}

	params := []map[string]any{{"name": "name", "valueString": system}}
	switch {
	case property == "display" && hasDisplay:
		params = append(params, map[string]any{"name": "display", "valueString": display})
	case property == "display" && !hasDisplay && !hasProps:
		writeOutcome(w, http.StatusNotFound, "not-found")
		return
	case property == "*" && !hasProps && !hasDisplay:
		writeOutcome(w, http.StatusNotFound, "not-found")
		return
	case property == "*":
		for _, p := range props {
			parts := []map[string]any{{"name": "code", "valueCode": p.Name}}
			if p.Value != "" {
				parts = append(parts, map[string]any{
					"name":        "value",
					"valueCoding": map[string]any{"system": terminology.LoincSystem, "code": p.Value, "display": p.Display},
				})
			}
			params = append(params, map[string]any{"name": "property", "part": parts})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"resourceType": "Parameters", "parameter": params})
}

func (s *Server) handleUnits(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	units := s.units
	status := s.unitsStatus
	s.mu.Unlock()

	if status != http.StatusOK {
		writeOutcome(w, status, "exception")
		return
	}

	concepts := make([]map[string]any, 0, len(units))
	for _, u := range units {
		concepts = append(concepts, map[string]any{"code": u.Code, "display": u.Display})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resourceType": "ValueSet",
		"url":          "http://hl7.org/fhir/ValueSet/ucum-common",
		"compose": map[string]any{
			"include": []map[string]any{{"system": resource.UcumSystem, "concept": concepts}},
		},
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.tokenCalls++
	ttl := s.tokenTTL
	s.mu.Unlock()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": r.PostForm.Get("client_id"),
		"exp": time.Now().Add(ttl).Unix(),
	})
	signed, err := tok.SignedString([]byte("fhirclienttest"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   int(ttl.Seconds()),
	})
}

func outcomeCode(status int) string {
	switch status {
	case http.StatusNotFound, http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "not-found"
	default:
		return "exception"
	}
}

func writeOutcome(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{
		"resourceType": "OperationOutcome",
		"issue":        []map[string]any{{"severity": "error", "code": code}},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/fhir+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
