package models

import "time"

// DeploymentRun is the persisted record of one orchestrated run.
type DeploymentRun struct {
	ID          string              `gorm:"primaryKey;size:191;column:id" json:"id"`
	Status      RunStatus           `gorm:"size:191;default:PENDING;column:status" json:"status"`
	Environment string              `gorm:"size:191;column:environment" json:"environment"`
	Provider    string              `gorm:"size:191;column:provider" json:"provider"`
	Success     bool                `gorm:"column:success" json:"success"`
	FrontendURL *string             `gorm:"size:512;column:frontendUrl" json:"frontendUrl,omitempty"`
	BackendURL  *string             `gorm:"size:512;column:backendUrl" json:"backendUrl,omitempty"`
	DurationMs  int64               `gorm:"column:durationMs" json:"durationMs"`
	StartedAt   time.Time           `gorm:"autoCreateTime;column:startedAt" json:"startedAt"`
	CompletedAt *time.Time          `gorm:"column:completedAt" json:"completedAt,omitempty"`
	CreatedAt   time.Time           `gorm:"autoCreateTime;column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime;column:updatedAt" json:"updatedAt"`
	Services    []ServiceDeployment `gorm:"foreignKey:RunID" json:"services,omitempty"`
}

func (DeploymentRun) TableName() string {
	return "DeploymentRun"
}

// ServiceDeployment is the persisted per-service record of a run.
type ServiceDeployment struct {
	ID          int          `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	RunID       string       `gorm:"index;size:191;column:runId" json:"runId"`
	ServiceName string       `gorm:"size:191;column:serviceName" json:"serviceName"`
	Kind        ServiceKind  `gorm:"size:191;column:kind" json:"kind"`
	Framework   string       `gorm:"size:191;column:framework" json:"framework,omitempty"`
	Status      DeployStatus `gorm:"size:191;default:PENDING;column:status" json:"status"`
	URL         *string      `gorm:"size:512;column:url" json:"url,omitempty"`
	Error       *string      `gorm:"type:text;column:error" json:"error,omitempty"`
	DurationMs  int64        `gorm:"column:durationMs" json:"durationMs"`
	StartedAt   *time.Time   `gorm:"column:startedAt" json:"startedAt,omitempty"`
	CompletedAt *time.Time   `gorm:"column:completedAt" json:"completedAt,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;column:createdAt" json:"createdAt"`
}

func (ServiceDeployment) TableName() string {
	return "ServiceDeployment"
}
