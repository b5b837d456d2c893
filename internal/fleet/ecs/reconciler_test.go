package ecs

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/skylift/skylift/engine/internal/config"
	"github.com/skylift/skylift/engine/internal/fleet"
)

func testInfra() config.Infrastructure {
	return config.Infrastructure{
		ClusterName:      "skylift-cluster",
		VpcID:            "vpc-123",
		SubnetIDs:        []string{"subnet-a", "subnet-b"},
		SecurityGroupIDs: []string{"sg-1"},
		ExecutionRoleArn: "arn:aws:iam::123456789012:role/skylift-exec",
		LogGroup:         "/skylift/services",
		HTTPListenerArn:  "arn:listener/http",
		GatewayDomain:    "gw.example.com",
	}
}

func testSpec() fleet.ServiceSpec {
	return fleet.ServiceSpec{
		ProjectID:       "shop-api",
		Image:           "registry.example/skylift/shop-api:abc123",
		Port:            8080,
		HealthCheckPath: "/healthz",
		Env:             map[string]string{"B_KEY": "2", "A_KEY": "1"},
		DesiredCount:    1,
	}
}

func TestEnsureTaskDefinitionRegistersRevision(t *testing.T) {
	var captured *awsecs.RegisterTaskDefinitionInput
	compute := &fakeCompute{
		registerTaskDefinition: func(in *awsecs.RegisterTaskDefinitionInput) (*awsecs.RegisterTaskDefinitionOutput, error) {
			captured = in
			return &awsecs.RegisterTaskDefinitionOutput{
				TaskDefinition: &ecstypes.TaskDefinition{
					TaskDefinitionArn: aws.String("arn:taskdef/skylift-shop-api:3"),
				},
			}, nil
		},
	}
	r := NewReconciler(compute, &fakeRouting{}, testInfra(), "eu-west-1")

	arn, err := r.EnsureTaskDefinition(context.Background(), testSpec())
	if err != nil {
		t.Fatalf("EnsureTaskDefinition: %v", err)
	}
	if arn != "arn:taskdef/skylift-shop-api:3" {
		t.Errorf("arn = %q", arn)
	}
	if got := aws.ToString(captured.Family); got != "skylift-shop-api" {
		t.Errorf("family = %q, want skylift-shop-api", got)
	}
	if got := aws.ToString(captured.ExecutionRoleArn); got != testInfra().ExecutionRoleArn {
		t.Errorf("execution role = %q", got)
	}

	container := captured.ContainerDefinitions[0]
	if got := aws.ToString(container.Image); got != testSpec().Image {
		t.Errorf("image = %q", got)
	}
	if got := container.PortMappings[0].ContainerPort; aws.ToInt32(got) != 8080 {
		t.Errorf("container port = %d", aws.ToInt32(got))
	}
	if len(container.Environment) != 2 ||
		aws.ToString(container.Environment[0].Name) != "A_KEY" ||
		aws.ToString(container.Environment[1].Name) != "B_KEY" {
		t.Errorf("environment not sorted: %+v", container.Environment)
	}
	if got := container.LogConfiguration.Options["awslogs-region"]; got != "eu-west-1" {
		t.Errorf("awslogs-region = %q", got)
	}
}

func TestEnsureTargetGroupReusesExisting(t *testing.T) {
	routing := &fakeRouting{
		describeTargetGroups: func(in *elbv2.DescribeTargetGroupsInput) (*elbv2.DescribeTargetGroupsOutput, error) {
			if in.Names[0] != "skylift-shop-api" {
				t.Errorf("looked up %q", in.Names[0])
			}
			return &elbv2.DescribeTargetGroupsOutput{
				TargetGroups: []elbtypes.TargetGroup{
					{TargetGroupArn: aws.String("arn:tg/existing")},
				},
			}, nil
		},
	}
	r := NewReconciler(&fakeCompute{}, routing, testInfra(), "eu-west-1")

	arn, err := r.EnsureTargetGroup(context.Background(), testSpec())
	if err != nil {
		t.Fatalf("EnsureTargetGroup: %v", err)
	}
	if arn != "arn:tg/existing" {
		t.Errorf("arn = %q", arn)
	}
	for _, call := range routing.calls {
		if call == "CreateTargetGroup" {
			t.Error("created a new target group despite an existing one")
		}
	}
}

func TestEnsureTargetGroupCreatesWhenMissing(t *testing.T) {
	var captured *elbv2.CreateTargetGroupInput
	routing := &fakeRouting{
		describeTargetGroups: func(*elbv2.DescribeTargetGroupsInput) (*elbv2.DescribeTargetGroupsOutput, error) {
			return nil, &elbtypes.TargetGroupNotFoundException{}
		},
		createTargetGroup: func(in *elbv2.CreateTargetGroupInput) (*elbv2.CreateTargetGroupOutput, error) {
			captured = in
			return &elbv2.CreateTargetGroupOutput{
				TargetGroups: []elbtypes.TargetGroup{
					{TargetGroupArn: aws.String("arn:tg/new")},
				},
			}, nil
		},
	}
	r := NewReconciler(&fakeCompute{}, routing, testInfra(), "eu-west-1")

	spec := testSpec()
	spec.HealthCheckPath = ""
	arn, err := r.EnsureTargetGroup(context.Background(), spec)
	if err != nil {
		t.Fatalf("EnsureTargetGroup: %v", err)
	}
	if arn != "arn:tg/new" {
		t.Errorf("arn = %q", arn)
	}
	if got := captured.TargetType; got != elbtypes.TargetTypeEnumIp {
		t.Errorf("target type = %v", got)
	}
	if got := aws.ToString(captured.HealthCheckPath); got != "/" {
		t.Errorf("default health path = %q, want /", got)
	}
}

func TestEnsureServiceUpdatesActiveInPlace(t *testing.T) {
	var updated *awsecs.UpdateServiceInput
	compute := &fakeCompute{
		describeServices: func(*awsecs.DescribeServicesInput) (*awsecs.DescribeServicesOutput, error) {
			return &awsecs.DescribeServicesOutput{
				Services: []ecstypes.Service{
					{ServiceName: aws.String("skylift-shop-api"), Status: aws.String("ACTIVE")},
				},
			}, nil
		},
		updateService: func(in *awsecs.UpdateServiceInput) (*awsecs.UpdateServiceOutput, error) {
			updated = in
			return &awsecs.UpdateServiceOutput{
				Service: &ecstypes.Service{ServiceArn: aws.String("arn:svc/shop-api")},
			}, nil
		},
	}
	r := NewReconciler(compute, &fakeRouting{}, testInfra(), "eu-west-1")

	arn, err := r.EnsureService(context.Background(), testSpec(), "arn:taskdef/v3", "arn:tg/x")
	if err != nil {
		t.Fatalf("EnsureService: %v", err)
	}
	if arn != "arn:svc/shop-api" {
		t.Errorf("arn = %q", arn)
	}
	if updated == nil {
		t.Fatal("UpdateService was not called")
	}
	if !updated.ForceNewDeployment {
		t.Error("update did not force a new rollout")
	}
	if got := aws.ToString(updated.TaskDefinition); got != "arn:taskdef/v3" {
		t.Errorf("task definition = %q", got)
	}
	for _, call := range compute.calls {
		if call == "CreateService" {
			t.Error("created a service despite an active one")
		}
	}
}

func TestEnsureServiceCreatesWhenMissing(t *testing.T) {
	var created *awsecs.CreateServiceInput
	compute := &fakeCompute{
		describeServices: func(*awsecs.DescribeServicesInput) (*awsecs.DescribeServicesOutput, error) {
			return &awsecs.DescribeServicesOutput{
				Failures: []ecstypes.Failure{{Reason: aws.String("MISSING")}},
			}, nil
		},
		createService: func(in *awsecs.CreateServiceInput) (*awsecs.CreateServiceOutput, error) {
			created = in
			return &awsecs.CreateServiceOutput{
				Service: &ecstypes.Service{ServiceArn: aws.String("arn:svc/new")},
			}, nil
		},
	}
	r := NewReconciler(compute, &fakeRouting{}, testInfra(), "eu-west-1")

	if _, err := r.EnsureService(context.Background(), testSpec(), "arn:taskdef/v1", "arn:tg/x"); err != nil {
		t.Fatalf("EnsureService: %v", err)
	}
	if created == nil {
		t.Fatal("CreateService was not called")
	}
	if len(created.LoadBalancers) != 1 || aws.ToString(created.LoadBalancers[0].TargetGroupArn) != "arn:tg/x" {
		t.Errorf("load balancer attachment = %+v", created.LoadBalancers)
	}
	if got := created.NetworkConfiguration.AwsvpcConfiguration.Subnets; len(got) != 2 {
		t.Errorf("subnets = %v", got)
	}
}

func TestEnsureServiceSurfacesControlPlaneError(t *testing.T) {
	compute := &fakeCompute{
		describeServices: func(*awsecs.DescribeServicesInput) (*awsecs.DescribeServicesOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	r := NewReconciler(compute, &fakeRouting{}, testInfra(), "eu-west-1")

	_, err := r.EnsureService(context.Background(), testSpec(), "arn:taskdef/v1", "arn:tg/x")
	if !errors.Is(err, fleet.ErrReconcile) {
		t.Errorf("err = %v, want fleet.ErrReconcile", err)
	}
}

func TestTargetGroupNameTruncation(t *testing.T) {
	long := "a-very-long-project-name-that-exceeds-the-limit"
	name := targetGroupName(long)
	if len(name) > 32 {
		t.Errorf("len(%q) = %d", name, len(name))
	}
	if name[len(name)-1] == '-' {
		t.Errorf("name %q ends with a dash", name)
	}
	if targetGroupName("shop-api") != "skylift-shop-api" {
		t.Errorf("short name mangled: %q", targetGroupName("shop-api"))
	}
	if targetGroupName(long) != name {
		t.Errorf("truncated name unstable: %q then %q", name, targetGroupName(long))
	}
}

func TestTargetGroupNameDistinguishesSharedPrefixes(t *testing.T) {
	a := targetGroupName("customer-portal-frontend-staging")
	b := targetGroupName("customer-portal-frontend-prod")
	if a == b {
		t.Fatalf("projects with a shared prefix resolved to the same sink name %q", a)
	}
	if len(a) > 32 || len(b) > 32 {
		t.Errorf("len(%q) = %d, len(%q) = %d", a, len(a), b, len(b))
	}
}
