package models

// Service is a deployable unit discovered by the upstream analyzer. The
// engine consumes it read-only; Env is the only field the orchestrator
// touches, and only before the service's deployment starts.
type Service struct {
	Name            string            `json:"name"`
	Kind            ServiceKind       `json:"kind"`
	Framework       string            `json:"framework,omitempty"`
	SourcePath      string            `json:"sourcePath"`
	Port            int               `json:"port,omitempty"`
	HealthCheckPath string            `json:"healthCheckPath,omitempty"`
	BuildCommand    string            `json:"buildCommand,omitempty"`
	Env             map[string]string `json:"env,omitempty"`
	DesiredCount    int               `json:"desiredCount,omitempty"`
}

// Target selects where a run deploys to.
type Target struct {
	Environment string `json:"environment,omitempty"`
	Provider    string `json:"provider,omitempty"`
}
