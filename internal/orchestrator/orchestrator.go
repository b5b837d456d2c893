// Package orchestrator sequences the deployment of interdependent services:
// stage ordering, cross-service configuration injection, per-service status
// tracking, and the overall success decision.
package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/skylift/skylift/engine/internal/models"
)

// ServiceDeployer deploys one service end-to-end and returns its URL.
type ServiceDeployer interface {
	Deploy(ctx context.Context, svc models.Service) (string, error)
}

// Recorder persists the outcome of a run. Recording must never influence
// the run's own success/failure determination.
type Recorder interface {
	Record(ctx context.Context, outcome *Outcome)
}

// EventPublisher receives per-service status transitions as they happen.
type EventPublisher interface {
	PublishServiceStatus(ctx context.Context, runID string, record ServiceRecord)
}

// ServiceRecord is the per-service status for one run. Status transitions
// are monotonic: PENDING -> DEPLOYING -> DEPLOYED | FAILED.
type ServiceRecord struct {
	Service     string              `json:"service"`
	Kind        models.ServiceKind  `json:"kind"`
	Framework   string              `json:"framework,omitempty"`
	Status      models.DeployStatus `json:"status"`
	URL         string              `json:"url,omitempty"`
	Error       string              `json:"error,omitempty"`
	StartedAt   time.Time           `json:"startedAt,omitempty"`
	CompletedAt time.Time           `json:"completedAt,omitempty"`
}

// OutcomeURLs are the primary URLs of a run: first frontend and first
// API-providing service encountered in plan order.
type OutcomeURLs struct {
	Frontend string `json:"frontend,omitempty"`
	Backend  string `json:"backend,omitempty"`
	API      string `json:"api,omitempty"`
}

// Outcome is the immutable record of one run, written once at the end.
type Outcome struct {
	RunID     string          `json:"runId"`
	Success   bool            `json:"success"`
	Timestamp time.Time       `json:"timestamp"`
	Duration  time.Duration   `json:"duration"`
	URLs      OutcomeURLs     `json:"urls"`
	Services  []ServiceRecord `json:"services"`
}

type Orchestrator struct {
	deployer ServiceDeployer
	recorder Recorder       // optional
	events   EventPublisher // optional
}

func New(deployer ServiceDeployer, recorder Recorder, events EventPublisher) *Orchestrator {
	return &Orchestrator{deployer: deployer, recorder: recorder, events: events}
}

// Run executes the deployment plan sequentially, stage by stage. Failures
// are scoped to the service that produced them: the run continues with the
// remaining services and always completes with an Outcome. Cancellation
// stops scheduling of services not yet started; the one in flight runs to
// its own terminal state.
func (o *Orchestrator) Run(ctx context.Context, runID string, services []models.Service) *Outcome {
	started := time.Now()
	plan := BuildPlan(services)

	records := make([]*ServiceRecord, 0, len(services))
	byName := make(map[string]*ServiceRecord, len(services))
	for _, stage := range plan {
		for _, svc := range stage {
			rec := &ServiceRecord{
				Service:   svc.Name,
				Kind:      svc.Kind,
				Framework: svc.Framework,
				Status:    models.DeployStatusPending,
			}
			records = append(records, rec)
			byName[svc.Name] = rec
		}
	}

	// First API-providing URL in plan order, available for injection into
	// later stages. Safe as a plain variable: execution is sequential and
	// writers finish their stage before any reader starts.
	apiURL := ""

	for _, stage := range plan {
		for i := range stage {
			svc := stage[i]
			rec := byName[svc.Name]

			if ctx.Err() != nil {
				log.Printf("[Orchestrate] Run %s cancelled; %s not scheduled", runID, svc.Name)
				continue
			}

			rec.Status = models.DeployStatusDeploying
			rec.StartedAt = time.Now()
			o.publish(ctx, runID, rec)

			if svc.Kind.ConsumesAPI() && apiURL != "" {
				injectBackendURL(&svc, apiURL)
			}

			url, err := o.deployer.Deploy(ctx, svc)
			rec.CompletedAt = time.Now()
			if err != nil {
				// Fail soft: a broken frontend must not take down the
				// visibility of an already-deployed backend.
				rec.Status = models.DeployStatusFailed
				rec.Error = err.Error()
				log.Printf("[Orchestrate] Service %s failed: %v", svc.Name, err)
			} else {
				rec.Status = models.DeployStatusDeployed
				rec.URL = url
				if svc.Kind.ProvidesAPI() && apiURL == "" {
					apiURL = url
				}
			}
			o.publish(ctx, runID, rec)
		}
	}

	outcome := &Outcome{
		RunID:     runID,
		Timestamp: started,
		Duration:  time.Since(started),
		Services:  make([]ServiceRecord, 0, len(records)),
	}

	success := true
	for _, rec := range records {
		if rec.Status == models.DeployStatusFailed || !rec.Status.Terminal() {
			success = false
		}
		if rec.URL != "" {
			if rec.Kind.ProvidesAPI() && outcome.URLs.Backend == "" {
				outcome.URLs.Backend = rec.URL
				outcome.URLs.API = rec.URL
			}
			if rec.Kind != models.ServiceKindBackend && outcome.URLs.Frontend == "" {
				outcome.URLs.Frontend = rec.URL
			}
		}
		outcome.Services = append(outcome.Services, *rec)
	}
	outcome.Success = success

	if o.recorder != nil {
		o.recorder.Record(ctx, outcome)
	}
	log.Printf("[Orchestrate] Run %s finished in %s (success=%t)", runID, outcome.Duration.Round(time.Millisecond), success)
	return outcome
}

func (o *Orchestrator) publish(ctx context.Context, runID string, rec *ServiceRecord) {
	if o.events != nil {
		o.events.PublishServiceStatus(ctx, runID, *rec)
	}
}
