package ecs

import (
	"context"

	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
)

// fakeCompute implements ComputeAPI with per-method hooks. Unset hooks
// return empty outputs.
type fakeCompute struct {
	calls []string

	registerTaskDefinition func(*awsecs.RegisterTaskDefinitionInput) (*awsecs.RegisterTaskDefinitionOutput, error)
	describeServices       func(*awsecs.DescribeServicesInput) (*awsecs.DescribeServicesOutput, error)
	createService          func(*awsecs.CreateServiceInput) (*awsecs.CreateServiceOutput, error)
	updateService          func(*awsecs.UpdateServiceInput) (*awsecs.UpdateServiceOutput, error)
	deleteService          func(*awsecs.DeleteServiceInput) (*awsecs.DeleteServiceOutput, error)
	listServices           func(*awsecs.ListServicesInput) (*awsecs.ListServicesOutput, error)
}

func (f *fakeCompute) RegisterTaskDefinition(ctx context.Context, params *awsecs.RegisterTaskDefinitionInput, optFns ...func(*awsecs.Options)) (*awsecs.RegisterTaskDefinitionOutput, error) {
	f.calls = append(f.calls, "RegisterTaskDefinition")
	if f.registerTaskDefinition != nil {
		return f.registerTaskDefinition(params)
	}
	return &awsecs.RegisterTaskDefinitionOutput{}, nil
}

func (f *fakeCompute) DescribeServices(ctx context.Context, params *awsecs.DescribeServicesInput, optFns ...func(*awsecs.Options)) (*awsecs.DescribeServicesOutput, error) {
	f.calls = append(f.calls, "DescribeServices")
	if f.describeServices != nil {
		return f.describeServices(params)
	}
	return &awsecs.DescribeServicesOutput{}, nil
}

func (f *fakeCompute) CreateService(ctx context.Context, params *awsecs.CreateServiceInput, optFns ...func(*awsecs.Options)) (*awsecs.CreateServiceOutput, error) {
	f.calls = append(f.calls, "CreateService")
	if f.createService != nil {
		return f.createService(params)
	}
	return &awsecs.CreateServiceOutput{}, nil
}

func (f *fakeCompute) UpdateService(ctx context.Context, params *awsecs.UpdateServiceInput, optFns ...func(*awsecs.Options)) (*awsecs.UpdateServiceOutput, error) {
	f.calls = append(f.calls, "UpdateService")
	if f.updateService != nil {
		return f.updateService(params)
	}
	return &awsecs.UpdateServiceOutput{}, nil
}

func (f *fakeCompute) DeleteService(ctx context.Context, params *awsecs.DeleteServiceInput, optFns ...func(*awsecs.Options)) (*awsecs.DeleteServiceOutput, error) {
	f.calls = append(f.calls, "DeleteService")
	if f.deleteService != nil {
		return f.deleteService(params)
	}
	return &awsecs.DeleteServiceOutput{}, nil
}

func (f *fakeCompute) ListServices(ctx context.Context, params *awsecs.ListServicesInput, optFns ...func(*awsecs.Options)) (*awsecs.ListServicesOutput, error) {
	f.calls = append(f.calls, "ListServices")
	if f.listServices != nil {
		return f.listServices(params)
	}
	return &awsecs.ListServicesOutput{}, nil
}

// fakeRouting implements RoutingAPI with per-method hooks.
type fakeRouting struct {
	calls []string

	describeTargetGroups func(*elbv2.DescribeTargetGroupsInput) (*elbv2.DescribeTargetGroupsOutput, error)
	createTargetGroup    func(*elbv2.CreateTargetGroupInput) (*elbv2.CreateTargetGroupOutput, error)
	deleteTargetGroup    func(*elbv2.DeleteTargetGroupInput) (*elbv2.DeleteTargetGroupOutput, error)
	describeRules        func(*elbv2.DescribeRulesInput) (*elbv2.DescribeRulesOutput, error)
	createRule           func(*elbv2.CreateRuleInput) (*elbv2.CreateRuleOutput, error)
	deleteRule           func(*elbv2.DeleteRuleInput) (*elbv2.DeleteRuleOutput, error)
}

func (f *fakeRouting) DescribeTargetGroups(ctx context.Context, params *elbv2.DescribeTargetGroupsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error) {
	f.calls = append(f.calls, "DescribeTargetGroups")
	if f.describeTargetGroups != nil {
		return f.describeTargetGroups(params)
	}
	return &elbv2.DescribeTargetGroupsOutput{}, nil
}

func (f *fakeRouting) CreateTargetGroup(ctx context.Context, params *elbv2.CreateTargetGroupInput, optFns ...func(*elbv2.Options)) (*elbv2.CreateTargetGroupOutput, error) {
	f.calls = append(f.calls, "CreateTargetGroup")
	if f.createTargetGroup != nil {
		return f.createTargetGroup(params)
	}
	return &elbv2.CreateTargetGroupOutput{}, nil
}

func (f *fakeRouting) DeleteTargetGroup(ctx context.Context, params *elbv2.DeleteTargetGroupInput, optFns ...func(*elbv2.Options)) (*elbv2.DeleteTargetGroupOutput, error) {
	f.calls = append(f.calls, "DeleteTargetGroup")
	if f.deleteTargetGroup != nil {
		return f.deleteTargetGroup(params)
	}
	return &elbv2.DeleteTargetGroupOutput{}, nil
}

func (f *fakeRouting) DescribeRules(ctx context.Context, params *elbv2.DescribeRulesInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeRulesOutput, error) {
	f.calls = append(f.calls, "DescribeRules")
	if f.describeRules != nil {
		return f.describeRules(params)
	}
	return &elbv2.DescribeRulesOutput{}, nil
}

func (f *fakeRouting) CreateRule(ctx context.Context, params *elbv2.CreateRuleInput, optFns ...func(*elbv2.Options)) (*elbv2.CreateRuleOutput, error) {
	f.calls = append(f.calls, "CreateRule")
	if f.createRule != nil {
		return f.createRule(params)
	}
	return &elbv2.CreateRuleOutput{}, nil
}

func (f *fakeRouting) DeleteRule(ctx context.Context, params *elbv2.DeleteRuleInput, optFns ...func(*elbv2.Options)) (*elbv2.DeleteRuleOutput, error) {
	f.calls = append(f.calls, "DeleteRule")
	if f.deleteRule != nil {
		return f.deleteRule(params)
	}
	return &elbv2.DeleteRuleOutput{}, nil
}
