package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one unit of sweep work. Run is called once per cycle while the
// scheduler holds its lock.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs of one scheduler in registration order. Names are
// unique because they label logs and metrics.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry registers the given jobs, dropping nil entries and repeated names.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{names: make(map[string]struct{}, len(jobs))}
	for _, job := range jobs {
		_ = r.Register(job)
	}
	return r
}

// Register appends a job. A nil job, a blank name or a name already taken is rejected.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("job name required")
	}
	if _, taken := r.names[name]; taken {
		return fmt.Errorf("job %q already registered", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

// Names lists job names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}
