// internal/jobs/job.go
package jobs

import "context"

// Job is a unit of scheduled work run by the worker
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry tracks registered jobs
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with the provided jobs
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job to the registry
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns the registered jobs in the order they were added
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
