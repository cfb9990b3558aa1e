// Package terminology provides the memoizing lookup cache that sits in front
// of a remote FHIR terminology server.
//
// The package provides:
//   - Client: the two remote $lookup operations the transform needs
//   - LookupCache: per-run memo tables for display and full-property lookups,
//     issuing at most one remote call per (code, system, version)
//   - RedisStore: an optional persistent Store shared between runs
//   - ResponseProbe: FHIRPath checks over raw $lookup responses
//
// Example usage:
//
//	lc := terminology.NewLookupCache(client, terminology.WithIssues(collector))
//
//	display, err := lc.ResolveDisplay(ctx, "119364003", terminology.SnomedSystem, terminology.SnomedNLEdition, "Serum")
//	props, err := lc.ResolveAllProperties(ctx, "2345-7", terminology.LoincSystem, "2.72")
package terminology
