package ecs

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/skylift/skylift/engine/internal/fleet"
)

// The gateway orders rules by priority in [1, 50000]; the whole range is
// shared by every project behind it.
const priorityRange = 50000

// PriorityFor deterministically derives a project's rule priority. Stability
// across calls is what lets a redeploy land on the same rule slot.
// Collisions between unrelated projects are possible but rare and are not
// resolved here; a colliding create surfaces as fleet.ErrPriorityInUse.
func PriorityFor(projectID string) int32 {
	sum := sha256.Sum256([]byte(projectID))
	n := binary.BigEndian.Uint64(sum[:8])
	return int32(n%priorityRange) + 1
}

// Allocator manages the path-scoped rules that bind a project's gateway
// paths to its routing sink. It is the only component that may create or
// delete rules on the shared listeners.
type Allocator struct {
	routing          RoutingAPI
	httpListenerArn  string
	httpsListenerArn string // optional; attach is best-effort
}

func NewAllocator(routing RoutingAPI, httpListenerArn, httpsListenerArn string) *Allocator {
	return &Allocator{
		routing:          routing,
		httpListenerArn:  httpListenerArn,
		httpsListenerArn: httpsListenerArn,
	}
}

// Attach binds /{projectId} and /{projectId}/* to the target group on the
// plaintext listener and, best-effort, on the encrypted one. Rule conditions
// are immutable, so an existing rule is deleted and recreated rather than
// updated.
func (a *Allocator) Attach(ctx context.Context, projectID, targetGroupArn string) error {
	if err := a.attachOn(ctx, a.httpListenerArn, projectID, targetGroupArn); err != nil {
		var inUse *elbtypes.PriorityInUseException
		if errors.As(err, &inUse) {
			return fmt.Errorf("%w: priority %d for project %s", fleet.ErrPriorityInUse, PriorityFor(projectID), projectID)
		}
		return fmt.Errorf("%w: attach %s on listener: %v", fleet.ErrRouting, projectID, err)
	}

	if a.httpsListenerArn != "" {
		if err := a.attachOn(ctx, a.httpsListenerArn, projectID, targetGroupArn); err != nil {
			// A missing or misconfigured encrypted listener must not fail
			// the deploy; plaintext routing is already in place.
			log.Printf("[Routing] Warning: HTTPS listener attach failed for %s: %v", projectID, err)
		}
	}
	return nil
}

func (a *Allocator) attachOn(ctx context.Context, listenerArn, projectID, targetGroupArn string) error {
	if err := a.deleteProjectRules(ctx, listenerArn, projectID); err != nil {
		return err
	}

	_, err := a.routing.CreateRule(ctx, &elbv2.CreateRuleInput{
		ListenerArn: aws.String(listenerArn),
		Priority:    aws.Int32(PriorityFor(projectID)),
		Conditions: []elbtypes.RuleCondition{
			{
				Field: aws.String("path-pattern"),
				PathPatternConfig: &elbtypes.PathPatternConditionConfig{
					Values: []string{"/" + projectID, "/" + projectID + "/*"},
				},
			},
		},
		Actions: []elbtypes.Action{
			{
				Type:           elbtypes.ActionTypeEnumForward,
				TargetGroupArn: aws.String(targetGroupArn),
			},
		},
		Tags: []elbtypes.Tag{
			{Key: aws.String(ManagedByTagKey), Value: aws.String(ManagedByTagValue)},
			{Key: aws.String(ProjectTagKey), Value: aws.String(projectID)},
		},
	})
	if err != nil {
		return err
	}

	log.Printf("[Routing] Attached /%s at priority %d", projectID, PriorityFor(projectID))
	return nil
}

// Detach removes the project's rules from both listeners. The fleet-wide
// default rule is never touched, and "rule not found" counts as success so
// that racing removals stay idempotent.
func (a *Allocator) Detach(ctx context.Context, projectID string) error {
	listeners := []string{a.httpListenerArn}
	if a.httpsListenerArn != "" {
		listeners = append(listeners, a.httpsListenerArn)
	}

	for _, listenerArn := range listeners {
		if err := a.deleteProjectRules(ctx, listenerArn, projectID); err != nil {
			var listenerGone *elbtypes.ListenerNotFoundException
			if errors.As(err, &listenerGone) {
				continue
			}
			return fmt.Errorf("%w: detach %s: %v", fleet.ErrRouting, projectID, err)
		}
	}
	return nil
}

func (a *Allocator) deleteProjectRules(ctx context.Context, listenerArn, projectID string) error {
	out, err := a.routing.DescribeRules(ctx, &elbv2.DescribeRulesInput{
		ListenerArn: aws.String(listenerArn),
	})
	if err != nil {
		return err
	}

	for _, rule := range out.Rules {
		if aws.ToBool(rule.IsDefault) || !ruleMatchesProject(rule, projectID) {
			continue
		}
		_, err := a.routing.DeleteRule(ctx, &elbv2.DeleteRuleInput{
			RuleArn: rule.RuleArn,
		})
		if err != nil {
			var gone *elbtypes.RuleNotFoundException
			if errors.As(err, &gone) {
				continue
			}
			return err
		}
	}
	return nil
}

// ruleMatchesProject reports whether any path condition of the rule starts
// with the project's path prefix.
func ruleMatchesProject(rule elbtypes.Rule, projectID string) bool {
	prefix := "/" + projectID
	for _, cond := range rule.Conditions {
		if aws.ToString(cond.Field) != "path-pattern" {
			continue
		}
		values := cond.Values
		if cond.PathPatternConfig != nil {
			values = cond.PathPatternConfig.Values
		}
		for _, v := range values {
			if v == prefix || strings.HasPrefix(v, prefix+"/") {
				return true
			}
		}
	}
	return false
}
