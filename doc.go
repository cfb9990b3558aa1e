// Package labcodeset transforms a Labcodeset publication into FHIR R4
// terminology resources.
//
// A run decodes the publication, resolves SNOMED CT displays and LOINC part
// properties through a remote terminology server, and emits a LOINC
// CodeSystem supplement, a UCUM CodeSystem fragment, ValueSets, ConceptMaps
// and a collection Bundle holding all of them.
//
// # Quick Start
//
//	import (
//	    lcs "github.com/gofhir/labcodeset"
//	    "github.com/gofhir/labcodeset/engine"
//	    "github.com/gofhir/labcodeset/fhirclient"
//	    "github.com/gofhir/labcodeset/publication"
//	    "github.com/gofhir/labcodeset/terminology"
//	)
//
//	pub, err := publication.Load("labcodeset.xml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := fhirclient.NewClient("https://terminology.example.org/fhir")
//	lookup := terminology.NewLookupCache(client)
//	units := fhirclient.NewCommonUnitsFetcher(nil, unitsURL)
//
//	t := engine.New(lookup, units, lcs.WithParallelGenerators(true))
//	result, err := t.Run(ctx, pub, "2.72")
//	if err != nil {
//	    // result still holds the resources generated before the failure
//	}
//
// # Functional Options
//
//	t := engine.New(lookup, units,
//	    lcs.WithParallelGenerators(true),
//	    lcs.WithPrefetchWorkers(8),
//	    lcs.WithGeneratorTimeout(5*time.Minute),
//	    lcs.WithMetrics(lcs.NewMetrics()),
//	)
//
// # Diagnostics
//
// Recoverable problems in the publication (a unit reference that does not
// resolve, a LOINC part without a Dutch label) never stop a run. They are
// reported as issues on the run's collector and returned with the result.
// Data integrity violations and transport failures are returned as errors.
package labcodeset
