// Package deployer deploys or removes one service end-to-end: image build,
// infrastructure reconciliation, routing, health. It is the unit of
// idempotent retry: re-running a deploy is always safe.
package deployer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/skylift/skylift/engine/internal/builder"
	"github.com/skylift/skylift/engine/internal/fleet"
	"github.com/skylift/skylift/engine/internal/models"
	"github.com/skylift/skylift/engine/internal/utils"
)

const defaultDesiredCount = 1

// Locker serializes deploys per project. The engine requires a single
// writer per project at a time but does not provide that exclusion itself;
// the lock comes from outside (Redis in production).
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// RepositoryManager removes a project's image repository on teardown.
type RepositoryManager interface {
	DeleteRepository(ctx context.Context, projectID string) error
}

// Deployer composes the builder and a fleet provider.
type Deployer struct {
	builder  builder.Builder
	provider fleet.Provider
	repos    RepositoryManager // optional
	locker   Locker            // optional
	lockTTL  time.Duration
}

func New(b builder.Builder, provider fleet.Provider, repos RepositoryManager, locker Locker) *Deployer {
	return &Deployer{
		builder:  b,
		provider: provider,
		repos:    repos,
		locker:   locker,
		lockTTL:  30 * time.Minute,
	}
}

// Deploy builds and publishes the service image, then converges the
// project's infrastructure and returns the externally reachable URL.
// On failure no cleanup of partially created resources is attempted;
// the next Deploy call reconciles whatever was left behind.
func (d *Deployer) Deploy(ctx context.Context, svc models.Service) (string, error) {
	projectID := utils.ProjectID(svc.Name)
	if projectID == "" {
		return "", fmt.Errorf("service name %q yields an empty project id", svc.Name)
	}

	if d.locker != nil {
		lockKey := "deploy-lock:" + projectID
		ok, err := d.locker.AcquireLock(ctx, lockKey, d.lockTTL)
		if err != nil {
			return "", fmt.Errorf("failed to lock project %s: %w", projectID, err)
		}
		if !ok {
			return "", fmt.Errorf("a deployment is already in progress for %s", projectID)
		}
		defer func() {
			if err := d.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
				log.Printf("[Deploy] Warning: failed to release lock for %s: %v", projectID, err)
			}
		}()
	}

	image, err := d.builder.Build(ctx, projectID, svc)
	if err != nil {
		return "", err
	}

	desired := svc.DesiredCount
	if desired <= 0 {
		desired = defaultDesiredCount
	}
	port := svc.Port
	if port <= 0 {
		port = 8080
	}

	url, err := d.provider.Deploy(ctx, fleet.ServiceSpec{
		ProjectID:       projectID,
		Image:           image,
		Port:            port,
		HealthCheckPath: svc.HealthCheckPath,
		Env:             svc.Env,
		DesiredCount:    desired,
	})
	if err != nil {
		return "", err
	}

	log.Printf("[Deploy] Service %s deployed at %s", svc.Name, url)
	return url, nil
}

// Remove tears down everything the engine created for the project,
// tolerating resources that are already gone. The image repository goes
// last so a failed infrastructure teardown can be retried with images
// still in place.
func (d *Deployer) Remove(ctx context.Context, projectID string) error {
	if err := d.provider.Remove(ctx, projectID); err != nil {
		return err
	}
	if d.repos != nil {
		if err := d.repos.DeleteRepository(ctx, projectID); err != nil {
			return err
		}
	}
	return nil
}

// List enumerates the projects the engine currently manages.
func (d *Deployer) List(ctx context.Context) ([]fleet.ProjectStatus, error) {
	return d.provider.List(ctx)
}
