package labcodeset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gofhir/labcodeset/pkg/issue"
	"github.com/gofhir/labcodeset/resource"
	"github.com/gofhir/labcodeset/terminology"
)

func TestMetrics_Lookups(t *testing.T) {
	m := NewMetrics()

	m.RecordLookup(terminology.OpDisplay, terminology.OutcomeRemote)
	m.RecordLookup(terminology.OpDisplay, terminology.OutcomeHit)
	m.RecordLookup(terminology.OpDisplay, terminology.OutcomeHit)
	m.RecordLookup(terminology.OpProperties, terminology.OutcomeFallback)

	if got := testutil.ToFloat64(m.lookups.WithLabelValues("display", "hit")); got != 2 {
		t.Errorf("display hits = %v; want 2", got)
	}
	if got := testutil.ToFloat64(m.lookups.WithLabelValues("properties", "fallback")); got != 1 {
		t.Errorf("properties fallbacks = %v; want 1", got)
	}
}

func TestMetrics_RemoteCalls(t *testing.T) {
	m := NewMetrics()

	m.RecordRemoteCall(terminology.OpProperties, 120*time.Millisecond, nil)
	m.RecordRemoteCall(terminology.OpProperties, 80*time.Millisecond, errors.New("timeout"))

	if got := testutil.ToFloat64(m.remoteCalls.WithLabelValues("properties", "ok")); got != 1 {
		t.Errorf("ok calls = %v; want 1", got)
	}
	if got := testutil.ToFloat64(m.remoteCalls.WithLabelValues("properties", "error")); got != 1 {
		t.Errorf("failed calls = %v; want 1", got)
	}
	if n := testutil.CollectAndCount(m.remoteDuration); n != 1 {
		t.Errorf("duration series = %d; want 1", n)
	}
}

func TestMetrics_Generator(t *testing.T) {
	m := NewMetrics()

	m.ObserveGenerator("loinc", 1.5, nil)
	m.ObserveGenerator("ucum", 0.2, errors.New("boom"))

	if n := testutil.CollectAndCount(m.generatorDuration); n != 2 {
		t.Errorf("generator series = %d; want 2", n)
	}
}

func TestMetrics_IssuesAndResources(t *testing.T) {
	m := NewMetrics()

	m.RecordIssues([]issue.Issue{
		{Severity: issue.SeverityWarning, MessageID: string(issue.DiagUnitRefNotFound)},
		{Severity: issue.SeverityWarning, MessageID: string(issue.DiagUnitRefNotFound)},
		{Severity: issue.SeverityInformation, MessageID: string(issue.DiagUnitNone)},
	})
	m.RecordResources([]resource.Entry{
		{Role: resource.RoleUcumValueSet, Resource: &resource.ValueSet{Metadata: resource.Metadata{Type: resource.TypeValueSet}}},
		{Role: resource.RoleMaterialValueSet, Resource: &resource.ValueSet{Metadata: resource.Metadata{Type: resource.TypeValueSet}}},
		{Role: resource.RoleUcumCodeSystem, Resource: &resource.CodeSystem{Metadata: resource.Metadata{Type: resource.TypeCodeSystem}}},
	})

	warn := testutil.ToFloat64(m.diagnostics.WithLabelValues("warning", string(issue.DiagUnitRefNotFound)))
	if warn != 2 {
		t.Errorf("warnings = %v; want 2", warn)
	}
	if got := testutil.ToFloat64(m.resources.WithLabelValues(resource.TypeValueSet)); got != 2 {
		t.Errorf("value sets = %v; want 2", got)
	}
	if got := testutil.ToFloat64(m.resources.WithLabelValues(resource.TypeCodeSystem)); got != 1 {
		t.Errorf("code systems = %v; want 1", got)
	}
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics

	// None of these may panic.
	m.RecordLookup(terminology.OpDisplay, terminology.OutcomeHit)
	m.RecordRemoteCall(terminology.OpDisplay, time.Second, nil)
	m.ObserveGenerator("loinc", 1, nil)
	m.RecordIssues([]issue.Issue{{Severity: issue.SeverityWarning}})
	m.RecordResources(nil)
	if err := m.WriteToTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("WriteToTextfile() = %v; want nil", err)
	}
	if m.Registry() != nil {
		t.Error("Registry() should be nil")
	}
}

func TestMetrics_WriteToTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordLookup(terminology.OpDisplay, terminology.OutcomeRemote)

	path := filepath.Join(t.TempDir(), "labcodeset.prom")
	if err := m.WriteToTextfile(path); err != nil {
		t.Fatalf("WriteToTextfile() = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `labcodeset_lookup_requests_total{operation="display",result="remote"} 1`) {
		t.Errorf("textfile missing lookup counter:\n%s", data)
	}
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordLookup(terminology.OpProperties, terminology.OutcomeHit)
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(m.lookups.WithLabelValues("properties", "hit")); got != 50 {
		t.Errorf("hits = %v; want 50", got)
	}
}
