package ecs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"

	"github.com/skylift/skylift/engine/internal/fleet"
)

// The control plane needs well over this long to register new tasks with
// the gateway, so no backoff or jitter is applied on top.
const defaultPollInterval = 10 * time.Second

// HealthGate blocks until a service's primary deployment reaches its
// desired running count, or a deadline elapses.
type HealthGate struct {
	compute  ComputeAPI
	cluster  string
	interval time.Duration
}

func NewHealthGate(compute ComputeAPI, cluster string) *HealthGate {
	return &HealthGate{compute: compute, cluster: cluster, interval: defaultPollInterval}
}

// AwaitHealthy polls every interval until the PRIMARY deployment of the
// named service reports runningCount == desiredCount. During a rollover the
// control plane reports several concurrent deployments; only the primary
// one counts. Returns fleet.ErrHealthTimeout (wrapped) once the deadline
// passes, and the context error promptly on cancellation mid-interval.
func (g *HealthGate) AwaitHealthy(ctx context.Context, projectID string, deadline time.Duration) error {
	name := resourceName(projectID)
	expire := time.NewTimer(deadline)
	defer expire.Stop()
	tick := time.NewTicker(g.interval)
	defer tick.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		running, desired, err := g.primaryCounts(ctx, name)
		if err != nil {
			return err
		}
		if desired > 0 && running == desired {
			log.Printf("[Health] Service %s healthy (%d/%d running)", name, running, desired)
			return nil
		}
		log.Printf("[Health] Waiting for %s (%d/%d running)", name, running, desired)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-expire.C:
			return fmt.Errorf("%w: service %s still at %d/%d after %s",
				fleet.ErrHealthTimeout, name, running, desired, deadline)
		case <-tick.C:
		}
	}
}

func (g *HealthGate) primaryCounts(ctx context.Context, name string) (running, desired int32, err error) {
	out, err := g.compute.DescribeServices(ctx, &awsecs.DescribeServicesInput{
		Cluster:  aws.String(g.cluster),
		Services: []string{name},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("%w: describe service %s: %v", fleet.ErrReconcile, name, err)
	}
	if len(out.Services) == 0 {
		return 0, 0, fmt.Errorf("%w: service %s", fleet.ErrNotFound, name)
	}
	for _, deployment := range out.Services[0].Deployments {
		if aws.ToString(deployment.Status) == "PRIMARY" {
			return deployment.RunningCount, deployment.DesiredCount, nil
		}
	}
	// No primary deployment yet; treat as not converged.
	return 0, out.Services[0].DesiredCount, nil
}
