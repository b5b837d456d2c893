// Package builder reaches the image-build subsystem. From the engine's
// point of view it is a black box that turns a source path into a published
// image reference.
package builder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/skylift/skylift/engine/internal/models"
	redisq "github.com/skylift/skylift/engine/internal/redis"
	"github.com/skylift/skylift/engine/internal/utils"
	"github.com/skylift/skylift/engine/pkg/registry"
)

// ErrBuild classifies image build/publish failures. They abort a service's
// deployment before any infrastructure is mutated.
var ErrBuild = errors.New("image build failed")

// Builder produces a published, run-unique image reference for a service.
type Builder interface {
	Build(ctx context.Context, projectID string, svc models.Service) (string, error)
}

// Job is the payload handed to the out-of-process builder.
type Job struct {
	BuildID      string            `json:"buildId"`
	Project      string            `json:"project"`
	SourcePath   string            `json:"sourcePath"`
	BuildCommand string            `json:"buildCommand,omitempty"`
	Image        string            `json:"image"`
	Env          map[string]string `json:"env,omitempty"`
}

// Result is what the builder reports back on the build's result key.
type Result struct {
	BuildID string `json:"buildId"`
	Status  string `json:"status"` // "succeeded" or "failed"
	Image   string `json:"image,omitempty"`
	Error   string `json:"error,omitempty"`
}

// QueueBuilder publishes build jobs onto the shared builder queue and
// blocks until the builder reports a result.
type QueueBuilder struct {
	queue    *redisq.Client
	registry *registry.Client
	timeout  time.Duration
}

func NewQueueBuilder(queue *redisq.Client, reg *registry.Client, timeout time.Duration) *QueueBuilder {
	return &QueueBuilder{queue: queue, registry: reg, timeout: timeout}
}

// Build ensures the project's repository, enqueues the build with a
// run-unique tag, and waits for the result. Any failure in this step is an
// ErrBuild: nothing has touched the fleet yet.
func (b *QueueBuilder) Build(ctx context.Context, projectID string, svc models.Service) (string, error) {
	repoURI, err := b.registry.EnsureRepository(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBuild, err)
	}

	buildID := utils.ShortID()
	image := repoURI + ":" + buildID

	job := Job{
		BuildID:      buildID,
		Project:      projectID,
		SourcePath:   svc.SourcePath,
		BuildCommand: svc.BuildCommand,
		Image:        image,
		Env:          svc.Env,
	}
	if err := b.queue.EnqueueBuild(ctx, job); err != nil {
		return "", fmt.Errorf("%w: enqueue: %v", ErrBuild, err)
	}
	log.Printf("[Build] Queued build %s for %s (%s)", buildID, projectID, image)

	payload, err := b.queue.AwaitBuildResult(ctx, buildID, b.timeout)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBuild, err)
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return "", fmt.Errorf("%w: malformed result: %v", ErrBuild, err)
	}
	if result.Status != "succeeded" {
		return "", fmt.Errorf("%w: %s", ErrBuild, result.Error)
	}
	if result.Image != "" {
		image = result.Image
	}

	log.Printf("[Build] Build %s for %s published %s", buildID, projectID, image)
	return image, nil
}
