package ecs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/skylift/skylift/engine/internal/config"
	"github.com/skylift/skylift/engine/internal/fleet"
)

// Provider drives the Fargate-style control plane: reconciler for the four
// resource kinds, health gate for convergence, allocator for gateway rules.
// Deploy is a forward-only reconciliation, not a transaction: a failure
// leaves partial state for the next attempt to converge.
type Provider struct {
	reconciler *Reconciler
	health     *HealthGate
	allocator  *Allocator

	compute        ComputeAPI
	routing        RoutingAPI
	infra          config.Infrastructure
	healthDeadline time.Duration
}

func NewProvider(compute ComputeAPI, routing RoutingAPI, infra config.Infrastructure, region string, healthDeadline time.Duration) *Provider {
	return &Provider{
		reconciler:     NewReconciler(compute, routing, infra, region),
		health:         NewHealthGate(compute, infra.ClusterName),
		allocator:      NewAllocator(routing, infra.HTTPListenerArn, infra.HTTPSListenerArn),
		compute:        compute,
		routing:        routing,
		infra:          infra,
		healthDeadline: healthDeadline,
	}
}

// Deploy converges the project's infrastructure toward the spec:
// new task definition revision, reused target group, updated-or-created
// service, recreated routing rule, then the health gate. Each step is
// individually idempotent so the whole call is safe to retry.
func (p *Provider) Deploy(ctx context.Context, spec fleet.ServiceSpec) (string, error) {
	taskDefArn, err := p.reconciler.EnsureTaskDefinition(ctx, spec)
	if err != nil {
		return "", err
	}

	targetGroupArn, err := p.reconciler.EnsureTargetGroup(ctx, spec)
	if err != nil {
		return "", err
	}

	if _, err := p.reconciler.EnsureService(ctx, spec, taskDefArn, targetGroupArn); err != nil {
		return "", err
	}

	if err := p.allocator.Attach(ctx, spec.ProjectID, targetGroupArn); err != nil {
		return "", err
	}

	if err := p.health.AwaitHealthy(ctx, spec.ProjectID, p.healthDeadline); err != nil {
		return "", err
	}

	return p.projectURL(spec.ProjectID), nil
}

// Remove tears a project down: rules first so no traffic reaches a dying
// service, then the replica set (scaled to zero before deletion), then the
// routing sink. Already-gone resources count as success at every step.
func (p *Provider) Remove(ctx context.Context, projectID string) error {
	if err := p.allocator.Detach(ctx, projectID); err != nil {
		return err
	}

	name := resourceName(projectID)
	_, err := p.compute.UpdateService(ctx, &awsecs.UpdateServiceInput{
		Cluster:      aws.String(p.infra.ClusterName),
		Service:      aws.String(name),
		DesiredCount: aws.Int32(0),
	})
	if err != nil && !isServiceGone(err) {
		return fmt.Errorf("%w: scale down service %s: %v", fleet.ErrReconcile, name, err)
	}
	if err == nil {
		_, err = p.compute.DeleteService(ctx, &awsecs.DeleteServiceInput{
			Cluster: aws.String(p.infra.ClusterName),
			Service: aws.String(name),
			Force:   aws.Bool(true),
		})
		if err != nil && !isServiceGone(err) {
			return fmt.Errorf("%w: delete service %s: %v", fleet.ErrReconcile, name, err)
		}
	}

	if err := p.deleteTargetGroup(ctx, projectID); err != nil {
		return err
	}

	log.Printf("[Fleet] Removed project %s", projectID)
	return nil
}

func (p *Provider) deleteTargetGroup(ctx context.Context, projectID string) error {
	name := targetGroupName(projectID)
	out, err := p.routing.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{
		Names: []string{name},
	})
	if err != nil {
		var notFound *elbtypes.TargetGroupNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("%w: describe target group %s: %v", fleet.ErrReconcile, name, err)
	}
	for _, tg := range out.TargetGroups {
		if _, err := p.routing.DeleteTargetGroup(ctx, &elbv2.DeleteTargetGroupInput{
			TargetGroupArn: tg.TargetGroupArn,
		}); err != nil {
			return fmt.Errorf("%w: delete target group %s: %v", fleet.ErrReconcile, name, err)
		}
	}
	return nil
}

// List enumerates every replica set carrying the managed-by marker.
func (p *Provider) List(ctx context.Context) ([]fleet.ProjectStatus, error) {
	var arns []string
	var nextToken *string
	for {
		out, err := p.compute.ListServices(ctx, &awsecs.ListServicesInput{
			Cluster:   aws.String(p.infra.ClusterName),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: list services: %v", fleet.ErrReconcile, err)
		}
		arns = append(arns, out.ServiceArns...)
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	var statuses []fleet.ProjectStatus
	// DescribeServices takes at most ten services per call.
	for start := 0; start < len(arns); start += 10 {
		end := start + 10
		if end > len(arns) {
			end = len(arns)
		}
		out, err := p.compute.DescribeServices(ctx, &awsecs.DescribeServicesInput{
			Cluster:  aws.String(p.infra.ClusterName),
			Services: arns[start:end],
			Include:  []ecstypes.ServiceField{ecstypes.ServiceFieldTags},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: describe services: %v", fleet.ErrReconcile, err)
		}
		for _, svc := range out.Services {
			projectID, managed := projectTag(svc.Tags)
			if !managed {
				continue
			}
			statuses = append(statuses, fleet.ProjectStatus{
				ProjectID:    projectID,
				Status:       aws.ToString(svc.Status),
				URL:          p.projectURL(projectID),
				RunningCount: int(svc.RunningCount),
				DesiredCount: int(svc.DesiredCount),
			})
		}
	}
	return statuses, nil
}

func (p *Provider) projectURL(projectID string) string {
	return "https://" + p.infra.GatewayDomain + "/" + projectID
}

func projectTag(tags []ecstypes.Tag) (string, bool) {
	managed := false
	projectID := ""
	for _, tag := range tags {
		switch aws.ToString(tag.Key) {
		case ManagedByTagKey:
			managed = aws.ToString(tag.Value) == ManagedByTagValue
		case ProjectTagKey:
			projectID = aws.ToString(tag.Value)
		}
	}
	return projectID, managed && projectID != ""
}

// isServiceGone covers the "already removed" answers the control plane can
// give: a typed not-found or an inactive service that cannot be updated.
func isServiceGone(err error) bool {
	var notFound *ecstypes.ServiceNotFoundException
	var inactive *ecstypes.ServiceNotActiveException
	var clusterGone *ecstypes.ClusterNotFoundException
	return errors.As(err, &notFound) || errors.As(err, &inactive) || errors.As(err, &clusterGone)
}
