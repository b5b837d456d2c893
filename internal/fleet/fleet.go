// Package fleet defines the contract between the service deployer and the
// fleet control planes it can drive. A provider owns the full lifecycle of
// one project's infrastructure behind the shared gateway.
package fleet

import "context"

// ServiceSpec is the desired state of one deployed service.
type ServiceSpec struct {
	ProjectID       string
	Image           string
	Port            int
	HealthCheckPath string
	Env             map[string]string
	DesiredCount    int
}

// ProjectStatus describes one project currently managed by the engine.
type ProjectStatus struct {
	ProjectID    string `json:"projectId"`
	Status       string `json:"status"`
	URL          string `json:"url"`
	RunningCount int    `json:"runningCount"`
	DesiredCount int    `json:"desiredCount"`
}

// Provider reconciles a project's infrastructure toward the given spec.
// Deploy is idempotent: partial state left behind by a failed attempt is
// picked up and converged by the next call. Remove tolerates already-gone
// resources. All three honor context cancellation.
type Provider interface {
	Deploy(ctx context.Context, spec ServiceSpec) (url string, err error)
	Remove(ctx context.Context, projectID string) error
	List(ctx context.Context) ([]ProjectStatus, error)
}
