package fhirclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/labcodeset/resource"
)

// DefaultCommonUnitsURL is the FHIR specification's common UCUM value set.
const DefaultCommonUnitsURL = "https://www.hl7.org/fhir/valueset-ucum-common.json"

// CommonUnitsFetcher downloads the common UCUM units value set.
type CommonUnitsFetcher struct {
	httpClient *http.Client
	url        string
}

// NewCommonUnitsFetcher creates a fetcher for the value set at url.
// An empty url selects DefaultCommonUnitsURL.
func NewCommonUnitsFetcher(httpClient *http.Client, url string) *CommonUnitsFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if url == "" {
		url = DefaultCommonUnitsURL
	}
	return &CommonUnitsFetcher{httpClient: httpClient, url: url}
}

// CommonUnits returns every code of the value set, compose before expansion,
// in document order.
func (f *CommonUnitsFetcher) CommonUnits(ctx context.Context) ([]resource.Coding, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/fhir+json, application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch common UCUM codes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp, f.url)
	}

	var vs r4.ValueSet
	if err := json.NewDecoder(resp.Body).Decode(&vs); err != nil {
		return nil, fmt.Errorf("failed to decode common UCUM value set: %w", err)
	}
	return valueSetCodings(&vs), nil
}

func valueSetCodings(vs *r4.ValueSet) []resource.Coding {
	var out []resource.Coding
	if vs.Compose != nil {
		for _, inc := range vs.Compose.Include {
			system := resource.UcumSystem
			if inc.System != nil {
				system = *inc.System
			}
			for _, c := range inc.Concept {
				if c.Code == nil {
					continue
				}
				out = append(out, resource.Coding{System: system, Code: *c.Code, Display: deref(c.Display)})
			}
		}
	}
	if len(out) == 0 && vs.Expansion != nil {
		out = appendContains(out, vs.Expansion.Contains)
	}
	return out
}

func appendContains(out []resource.Coding, contains []r4.ValueSetExpansionContains) []resource.Coding {
	for _, c := range contains {
		if c.Code != nil {
			system := resource.UcumSystem
			if c.System != nil {
				system = *c.System
			}
			out = append(out, resource.Coding{System: system, Code: *c.Code, Display: deref(c.Display)})
		}
		out = appendContains(out, c.Contains)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
