package engine

import (
	"github.com/gofhir/labcodeset/publication"
	"github.com/gofhir/labcodeset/resource"
	"github.com/gofhir/labcodeset/terminology"
	"github.com/gofhir/labcodeset/worker"
)

// PrefetchJobs lists the lookups a run performs, once per key.
//
// Jobs follow the order in which a sequential run first asks for each key,
// so a display that falls back caches the same fallback text it would
// without a prefetch: concept materials come before the publication's
// material list.
func PrefetchJobs(pub *publication.Publication, loincVersion string) []worker.Job {
	var jobs []worker.Job
	seen := make(map[worker.Kind]map[terminology.Key]struct{}, 2)
	add := func(job worker.Job) {
		keys, ok := seen[job.Kind]
		if !ok {
			keys = make(map[terminology.Key]struct{})
			seen[job.Kind] = keys
		}
		if _, dup := keys[job.Key]; dup {
			return
		}
		keys[job.Key] = struct{}{}
		jobs = append(jobs, job)
	}

	for i := range pub.LabConcepts {
		c := &pub.LabConcepts[i]
		if c.Loinc.Translation != nil {
			add(worker.PropertiesJob(c.Code(), resource.LoincSystem, loincVersion))
		}
		for _, m := range c.Materials {
			if m.Code == "" {
				continue
			}
			add(worker.DisplayJob(m.Code, resource.SnomedSystem, resource.SnomedNLEdition, m.DisplayName))
		}
	}
	for _, m := range pub.Materials {
		if m.Code == "" {
			continue
		}
		add(worker.DisplayJob(m.Code, resource.SnomedSystem, resource.SnomedNLEdition, m.DisplayName))
	}
	return jobs
}
