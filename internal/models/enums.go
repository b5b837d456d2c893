package models

// ServiceKind enum
type ServiceKind string

const (
	ServiceKindBackend   ServiceKind = "backend"
	ServiceKindFrontend  ServiceKind = "frontend"
	ServiceKindFullstack ServiceKind = "fullstack"
)

// Valid reports whether the kind is one the planner understands.
func (k ServiceKind) Valid() bool {
	switch k {
	case ServiceKindBackend, ServiceKindFrontend, ServiceKindFullstack:
		return true
	}
	return false
}

// ProvidesAPI reports whether a service of this kind exposes an API whose
// URL can be injected into later stages.
func (k ServiceKind) ProvidesAPI() bool {
	return k == ServiceKindBackend || k == ServiceKindFullstack
}

// ConsumesAPI reports whether a service of this kind receives backend URL
// injection into its build environment.
func (k ServiceKind) ConsumesAPI() bool {
	return k == ServiceKindFrontend || k == ServiceKindFullstack
}

// DeployStatus enum. Transitions are monotonic:
// PENDING -> DEPLOYING -> DEPLOYED | FAILED.
type DeployStatus string

const (
	DeployStatusPending   DeployStatus = "PENDING"
	DeployStatusDeploying DeployStatus = "DEPLOYING"
	DeployStatusDeployed  DeployStatus = "DEPLOYED"
	DeployStatusFailed    DeployStatus = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s DeployStatus) Terminal() bool {
	return s == DeployStatusDeployed || s == DeployStatusFailed
}

// RunStatus enum
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)
