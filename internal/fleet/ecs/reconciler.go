package ecs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/skylift/skylift/engine/internal/config"
	"github.com/skylift/skylift/engine/internal/fleet"
)

// Reconciler performs idempotent create-or-update operations against the
// fleet control plane. It never retries and never orders: each ensure call
// converges exactly one resource and surfaces any non-"not found" error to
// the caller untouched.
type Reconciler struct {
	compute ComputeAPI
	routing RoutingAPI
	infra   config.Infrastructure
	region  string
}

func NewReconciler(compute ComputeAPI, routing RoutingAPI, infra config.Infrastructure, region string) *Reconciler {
	return &Reconciler{compute: compute, routing: routing, infra: infra, region: region}
}

// EnsureTaskDefinition registers a new revision of the project's compute-unit
// template. Revisions are append-only: the control plane keeps history and a
// redeploy always points the service at the newest one.
func (r *Reconciler) EnsureTaskDefinition(ctx context.Context, spec fleet.ServiceSpec) (string, error) {
	family := resourceName(spec.ProjectID)

	env := make([]ecstypes.KeyValuePair, 0, len(spec.Env))
	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, ecstypes.KeyValuePair{
			Name:  aws.String(k),
			Value: aws.String(spec.Env[k]),
		})
	}

	out, err := r.compute.RegisterTaskDefinition(ctx, &awsecs.RegisterTaskDefinitionInput{
		Family:                  aws.String(family),
		Cpu:                     aws.String("256"),
		Memory:                  aws.String("512"),
		NetworkMode:             ecstypes.NetworkModeAwsvpc,
		RequiresCompatibilities: []ecstypes.Compatibility{ecstypes.CompatibilityFargate},
		ExecutionRoleArn:        aws.String(r.infra.ExecutionRoleArn),
		ContainerDefinitions: []ecstypes.ContainerDefinition{
			{
				Name:      aws.String(spec.ProjectID),
				Image:     aws.String(spec.Image),
				Essential: aws.Bool(true),
				PortMappings: []ecstypes.PortMapping{
					{
						ContainerPort: aws.Int32(int32(spec.Port)),
						Protocol:      ecstypes.TransportProtocolTcp,
					},
				},
				Environment: env,
				LogConfiguration: &ecstypes.LogConfiguration{
					LogDriver: ecstypes.LogDriverAwslogs,
					Options: map[string]string{
						"awslogs-group":         r.infra.LogGroup,
						"awslogs-region":        r.region,
						"awslogs-stream-prefix": spec.ProjectID,
					},
				},
			},
		},
		Tags: r.computeTags(spec.ProjectID),
	})
	if err != nil {
		return "", fmt.Errorf("%w: register task definition %s: %v", fleet.ErrReconcile, family, err)
	}

	log.Printf("[Reconcile] Registered task definition %s", aws.ToString(out.TaskDefinition.TaskDefinitionArn))
	return aws.ToString(out.TaskDefinition.TaskDefinitionArn), nil
}

// EnsureTargetGroup returns the project's routing sink, creating it on first
// deploy and reusing it on every redeploy.
func (r *Reconciler) EnsureTargetGroup(ctx context.Context, spec fleet.ServiceSpec) (string, error) {
	name := targetGroupName(spec.ProjectID)

	existing, err := r.routing.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{
		Names: []string{name},
	})
	if err == nil && len(existing.TargetGroups) > 0 {
		return aws.ToString(existing.TargetGroups[0].TargetGroupArn), nil
	}
	var notFound *elbtypes.TargetGroupNotFoundException
	if err != nil && !errors.As(err, &notFound) {
		return "", fmt.Errorf("%w: describe target group %s: %v", fleet.ErrReconcile, name, err)
	}

	healthPath := spec.HealthCheckPath
	if healthPath == "" {
		healthPath = "/"
	}

	created, err := r.routing.CreateTargetGroup(ctx, &elbv2.CreateTargetGroupInput{
		Name:                       aws.String(name),
		Protocol:                   elbtypes.ProtocolEnumHttp,
		Port:                       aws.Int32(int32(spec.Port)),
		VpcId:                      aws.String(r.infra.VpcID),
		TargetType:                 elbtypes.TargetTypeEnumIp,
		HealthCheckPath:            aws.String(healthPath),
		HealthCheckProtocol:        elbtypes.ProtocolEnumHttp,
		HealthCheckIntervalSeconds: aws.Int32(30),
		HealthyThresholdCount:      aws.Int32(2),
		UnhealthyThresholdCount:    aws.Int32(3),
		Tags:                       r.routingTags(spec.ProjectID),
	})
	if err != nil {
		return "", fmt.Errorf("%w: create target group %s: %v", fleet.ErrReconcile, name, err)
	}

	log.Printf("[Reconcile] Created target group %s", name)
	return aws.ToString(created.TargetGroups[0].TargetGroupArn), nil
}

// EnsureService converges the project's running replica set. An active
// service is updated in place to the new task definition revision with
// force-refresh semantics; a missing or inactive one is created from
// scratch with a single routing attachment.
func (r *Reconciler) EnsureService(ctx context.Context, spec fleet.ServiceSpec, taskDefArn, targetGroupArn string) (string, error) {
	name := resourceName(spec.ProjectID)

	existing, err := r.describeService(ctx, name)
	if err != nil && !errors.Is(err, fleet.ErrNotFound) {
		return "", fmt.Errorf("%w: describe service %s: %v", fleet.ErrReconcile, name, err)
	}

	if existing != nil && aws.ToString(existing.Status) == "ACTIVE" {
		out, err := r.compute.UpdateService(ctx, &awsecs.UpdateServiceInput{
			Cluster:            aws.String(r.infra.ClusterName),
			Service:            aws.String(name),
			TaskDefinition:     aws.String(taskDefArn),
			DesiredCount:       aws.Int32(int32(spec.DesiredCount)),
			ForceNewDeployment: true,
		})
		if err != nil {
			return "", fmt.Errorf("%w: update service %s: %v", fleet.ErrReconcile, name, err)
		}
		log.Printf("[Reconcile] Updated service %s to %s", name, taskDefArn)
		return aws.ToString(out.Service.ServiceArn), nil
	}

	out, err := r.compute.CreateService(ctx, &awsecs.CreateServiceInput{
		Cluster:        aws.String(r.infra.ClusterName),
		ServiceName:    aws.String(name),
		TaskDefinition: aws.String(taskDefArn),
		DesiredCount:   aws.Int32(int32(spec.DesiredCount)),
		LaunchType:     ecstypes.LaunchTypeFargate,
		NetworkConfiguration: &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        r.infra.SubnetIDs,
				SecurityGroups: r.infra.SecurityGroupIDs,
				AssignPublicIp: ecstypes.AssignPublicIpEnabled,
			},
		},
		LoadBalancers: []ecstypes.LoadBalancer{
			{
				TargetGroupArn: aws.String(targetGroupArn),
				ContainerName:  aws.String(spec.ProjectID),
				ContainerPort:  aws.Int32(int32(spec.Port)),
			},
		},
		Tags: r.computeTags(spec.ProjectID),
	})
	if err != nil {
		return "", fmt.Errorf("%w: create service %s: %v", fleet.ErrReconcile, name, err)
	}

	log.Printf("[Reconcile] Created service %s", name)
	return aws.ToString(out.Service.ServiceArn), nil
}

// describeService resolves one service by its deterministic name. A MISSING
// failure from the control plane maps to fleet.ErrNotFound.
func (r *Reconciler) describeService(ctx context.Context, name string) (*ecstypes.Service, error) {
	out, err := r.compute.DescribeServices(ctx, &awsecs.DescribeServicesInput{
		Cluster:  aws.String(r.infra.ClusterName),
		Services: []string{name},
	})
	if err != nil {
		return nil, err
	}
	for _, failure := range out.Failures {
		if aws.ToString(failure.Reason) == "MISSING" {
			return nil, fleet.ErrNotFound
		}
	}
	if len(out.Services) == 0 {
		return nil, fleet.ErrNotFound
	}
	return &out.Services[0], nil
}

func (r *Reconciler) computeTags(projectID string) []ecstypes.Tag {
	return []ecstypes.Tag{
		{Key: aws.String(ManagedByTagKey), Value: aws.String(ManagedByTagValue)},
		{Key: aws.String(ProjectTagKey), Value: aws.String(projectID)},
	}
}

func (r *Reconciler) routingTags(projectID string) []elbtypes.Tag {
	return []elbtypes.Tag{
		{Key: aws.String(ManagedByTagKey), Value: aws.String(ManagedByTagValue)},
		{Key: aws.String(ProjectTagKey), Value: aws.String(projectID)},
	}
}
