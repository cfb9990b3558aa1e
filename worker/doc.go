// Package worker provides a bounded worker pool that warms a terminology
// lookup cache.
//
// Prefetching resolves the displays and LOINC part properties a run will
// need before the generators start, so that parallel generators do not
// queue on the same remote calls.
//
// Example usage:
//
//	// Create a pool with 8 workers in front of the run's lookup cache
//	pool := worker.NewPool(ctx, lookup, 8)
//
//	// Drain results while submitting
//	go func() {
//	    for result := range pool.Results() {
//	        if result.Error != nil {
//	            // Handle error
//	        }
//	    }
//	}()
//
//	pool.Submit(worker.PropertiesJob("2345-7", resource.LoincSystem, "2.72"))
//	pool.Close()
//
// Prefetch wraps the same steps for a fixed job list.
package worker
