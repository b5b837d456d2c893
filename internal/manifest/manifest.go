// Package manifest persists the structured record of what a run attempted
// and what happened, for audit and downstream tooling. The manifest's field
// names and nesting are a compatibility surface.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/skylift/skylift/engine/internal/models"
	"github.com/skylift/skylift/engine/internal/orchestrator"
)

// Manifest is the JSON artifact written once per run.
type Manifest struct {
	Timestamp   string       `json:"timestamp"`
	Success     bool         `json:"success"`
	Duration    string       `json:"duration"`
	URLs        ManifestURLs `json:"urls"`
	Deployments []Deployment `json:"deployments"`
}

type ManifestURLs struct {
	Frontend string `json:"frontend,omitempty"`
	Backend  string `json:"backend,omitempty"`
	API      string `json:"api,omitempty"`
}

type Deployment struct {
	Service   string `json:"service"`
	Type      string `json:"type"`
	Framework string `json:"framework,omitempty"`
	Status    string `json:"status"`
	URL       string `json:"url,omitempty"`
	Duration  string `json:"duration"`
	Error     string `json:"error,omitempty"`
}

// Recorder writes the manifest file and, when a database is configured,
// the run history rows.
type Recorder struct {
	path string
	db   *gorm.DB // optional
}

func NewRecorder(path string, db *gorm.DB) *Recorder {
	return &Recorder{path: path, db: db}
}

// Record persists the outcome. It never propagates failures: a recording
// problem must not change the deployment's own success or failure.
func (r *Recorder) Record(ctx context.Context, outcome *orchestrator.Outcome) {
	if err := r.writeManifest(outcome); err != nil {
		log.Printf("[Manifest] Warning: failed to write manifest: %v", err)
	}
	if r.db != nil {
		if err := r.writeRows(ctx, outcome); err != nil {
			log.Printf("[Manifest] Warning: failed to persist run %s: %v", outcome.RunID, err)
		}
	}
}

// Build converts an outcome into the manifest document.
func Build(outcome *orchestrator.Outcome) Manifest {
	m := Manifest{
		Timestamp: outcome.Timestamp.UTC().Format(time.RFC3339),
		Success:   outcome.Success,
		Duration:  formatDuration(outcome.Duration),
		URLs: ManifestURLs{
			Frontend: outcome.URLs.Frontend,
			Backend:  outcome.URLs.Backend,
			API:      outcome.URLs.API,
		},
	}
	for _, svc := range outcome.Services {
		var svcDuration time.Duration
		if !svc.StartedAt.IsZero() && !svc.CompletedAt.IsZero() {
			svcDuration = svc.CompletedAt.Sub(svc.StartedAt)
		}
		m.Deployments = append(m.Deployments, Deployment{
			Service:   svc.Service,
			Type:      string(svc.Kind),
			Framework: svc.Framework,
			Status:    string(svc.Status),
			URL:       svc.URL,
			Duration:  formatDuration(svcDuration),
			Error:     svc.Error,
		})
	}
	return m
}

func (r *Recorder) writeManifest(outcome *orchestrator.Outcome) error {
	if r.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(Build(outcome), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, append(data, '\n'), 0o644)
}

func (r *Recorder) writeRows(ctx context.Context, outcome *orchestrator.Outcome) error {
	now := time.Now()
	status := models.RunStatusCompleted
	if !outcome.Success {
		status = models.RunStatusFailed
	}

	updates := map[string]any{
		"status":      status,
		"success":     outcome.Success,
		"durationMs":  outcome.Duration.Milliseconds(),
		"completedAt": &now,
	}
	if outcome.URLs.Frontend != "" {
		updates["frontendUrl"] = outcome.URLs.Frontend
	}
	if outcome.URLs.Backend != "" {
		updates["backendUrl"] = outcome.URLs.Backend
	}
	if err := r.db.WithContext(ctx).Model(&models.DeploymentRun{}).
		Where("id = ?", outcome.RunID).
		Updates(updates).Error; err != nil {
		return err
	}

	for _, svc := range outcome.Services {
		row := models.ServiceDeployment{
			RunID:       outcome.RunID,
			ServiceName: svc.Service,
			Kind:        svc.Kind,
			Framework:   svc.Framework,
			Status:      svc.Status,
		}
		if svc.URL != "" {
			row.URL = &svc.URL
		}
		if svc.Error != "" {
			errMsg := svc.Error
			row.Error = &errMsg
		}
		if !svc.StartedAt.IsZero() {
			startedAt := svc.StartedAt
			row.StartedAt = &startedAt
		}
		if !svc.CompletedAt.IsZero() {
			completedAt := svc.CompletedAt
			row.CompletedAt = &completedAt
			if !svc.StartedAt.IsZero() {
				row.DurationMs = svc.CompletedAt.Sub(svc.StartedAt).Milliseconds()
			}
		}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
