package kube

import (
	"context"
	"fmt"
	"log"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes"

	"github.com/skylift/skylift/engine/internal/fleet"
)

const (
	managedByLabel = "app.kubernetes.io/managed-by"
	managedByValue = "skylift"
	projectLabel   = "skylift.io/project"
)

const pollInterval = 10 * time.Second

// Provider reconciles a project onto a Kubernetes fleet: Deployment +
// Service + Ingress path on the shared gateway, mirroring the gateway
// semantics of the Fargate provider.
type Provider struct {
	client         kubernetes.Interface
	namespace      string
	ingressClass   string
	gatewayDomain  string
	healthDeadline time.Duration
}

func NewProvider(client kubernetes.Interface, namespace, ingressClass, gatewayDomain string, healthDeadline time.Duration) *Provider {
	if namespace == "" {
		namespace = "default"
	}
	return &Provider{
		client:         client,
		namespace:      namespace,
		ingressClass:   ingressClass,
		gatewayDomain:  gatewayDomain,
		healthDeadline: healthDeadline,
	}
}

func (p *Provider) Deploy(ctx context.Context, spec fleet.ServiceSpec) (string, error) {
	if err := p.ensureDeployment(ctx, spec); err != nil {
		return "", fmt.Errorf("%w: deployment %s: %v", fleet.ErrReconcile, spec.ProjectID, err)
	}
	if err := p.ensureService(ctx, spec); err != nil {
		return "", fmt.Errorf("%w: service %s: %v", fleet.ErrReconcile, spec.ProjectID, err)
	}
	if err := p.ensureIngress(ctx, spec); err != nil {
		return "", fmt.Errorf("%w: ingress %s: %v", fleet.ErrRouting, spec.ProjectID, err)
	}
	if err := p.awaitReady(ctx, spec.ProjectID); err != nil {
		return "", err
	}
	return "https://" + p.gatewayDomain + "/" + spec.ProjectID, nil
}

// ensureDeployment applies the get-then-create-or-update pattern; the
// apply is idempotent because the object is rebuilt from the spec each time.
func (p *Provider) ensureDeployment(ctx context.Context, spec fleet.ServiceSpec) error {
	desired := p.buildDeployment(spec)
	deployments := p.client.AppsV1().Deployments(p.namespace)

	existing, err := deployments.Get(ctx, spec.ProjectID, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err = deployments.Create(ctx, desired, metav1.CreateOptions{})
		return err
	}
	if err != nil {
		return err
	}

	existing.Spec = desired.Spec
	existing.Labels = desired.Labels
	_, err = deployments.Update(ctx, existing, metav1.UpdateOptions{})
	return err
}

func (p *Provider) ensureService(ctx context.Context, spec fleet.ServiceSpec) error {
	desired := p.buildService(spec)
	services := p.client.CoreV1().Services(p.namespace)

	existing, err := services.Get(ctx, spec.ProjectID, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err = services.Create(ctx, desired, metav1.CreateOptions{})
		return err
	}
	if err != nil {
		return err
	}

	// ClusterIP is immutable; carry it over.
	desired.Spec.ClusterIP = existing.Spec.ClusterIP
	existing.Spec = desired.Spec
	existing.Labels = desired.Labels
	_, err = services.Update(ctx, existing, metav1.UpdateOptions{})
	return err
}

func (p *Provider) ensureIngress(ctx context.Context, spec fleet.ServiceSpec) error {
	desired := p.buildIngress(spec)
	ingresses := p.client.NetworkingV1().Ingresses(p.namespace)

	existing, err := ingresses.Get(ctx, spec.ProjectID, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err = ingresses.Create(ctx, desired, metav1.CreateOptions{})
		return err
	}
	if err != nil {
		return err
	}

	existing.Spec = desired.Spec
	existing.Labels = desired.Labels
	_, err = ingresses.Update(ctx, existing, metav1.UpdateOptions{})
	return err
}

func (p *Provider) awaitReady(ctx context.Context, projectID string) error {
	expire := time.NewTimer(p.healthDeadline)
	defer expire.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for {
		deployment, err := p.client.AppsV1().Deployments(p.namespace).Get(ctx, projectID, metav1.GetOptions{})
		if err != nil {
			return fmt.Errorf("%w: get deployment %s: %v", fleet.ErrReconcile, projectID, err)
		}
		desired := int32(1)
		if deployment.Spec.Replicas != nil {
			desired = *deployment.Spec.Replicas
		}
		if desired > 0 && deployment.Status.ReadyReplicas == desired {
			log.Printf("[Health] Deployment %s ready (%d/%d)", projectID, deployment.Status.ReadyReplicas, desired)
			return nil
		}
		log.Printf("[Health] Waiting for %s (%d/%d ready)", projectID, deployment.Status.ReadyReplicas, desired)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-expire.C:
			return fmt.Errorf("%w: deployment %s still at %d/%d after %s",
				fleet.ErrHealthTimeout, projectID, deployment.Status.ReadyReplicas, desired, p.healthDeadline)
		case <-tick.C:
		}
	}
}

// Remove deletes routing first, then workload, tolerating already-gone
// resources at every step.
func (p *Provider) Remove(ctx context.Context, projectID string) error {
	if err := p.client.NetworkingV1().Ingresses(p.namespace).Delete(ctx, projectID, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("%w: delete ingress %s: %v", fleet.ErrRouting, projectID, err)
	}
	if err := p.client.CoreV1().Services(p.namespace).Delete(ctx, projectID, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("%w: delete service %s: %v", fleet.ErrReconcile, projectID, err)
	}
	if err := p.client.AppsV1().Deployments(p.namespace).Delete(ctx, projectID, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("%w: delete deployment %s: %v", fleet.ErrReconcile, projectID, err)
	}
	return nil
}

func (p *Provider) List(ctx context.Context) ([]fleet.ProjectStatus, error) {
	deployments, err := p.client.AppsV1().Deployments(p.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: managedByLabel + "=" + managedByValue,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list deployments: %v", fleet.ErrReconcile, err)
	}

	var statuses []fleet.ProjectStatus
	for _, d := range deployments.Items {
		projectID := d.Labels[projectLabel]
		if projectID == "" {
			continue
		}
		desired := int32(1)
		if d.Spec.Replicas != nil {
			desired = *d.Spec.Replicas
		}
		status := "ACTIVE"
		if d.Status.ReadyReplicas < desired {
			status = "CONVERGING"
		}
		statuses = append(statuses, fleet.ProjectStatus{
			ProjectID:    projectID,
			Status:       status,
			URL:          "https://" + p.gatewayDomain + "/" + projectID,
			RunningCount: int(d.Status.ReadyReplicas),
			DesiredCount: int(desired),
		})
	}
	return statuses, nil
}

func (p *Provider) buildDeployment(spec fleet.ServiceSpec) *appsv1.Deployment {
	replicas := int32(spec.DesiredCount)
	labels := p.labels(spec.ProjectID)

	env := make([]corev1.EnvVar, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, corev1.EnvVar{Name: k, Value: v})
	}

	healthPath := spec.HealthCheckPath
	if healthPath == "" {
		healthPath = "/"
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.ProjectID,
			Namespace: p.namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{
				MatchLabels: map[string]string{projectLabel: spec.ProjectID},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  spec.ProjectID,
							Image: spec.Image,
							Ports: []corev1.ContainerPort{
								{ContainerPort: int32(spec.Port)},
							},
							Env: env,
							Resources: corev1.ResourceRequirements{
								Limits: corev1.ResourceList{
									corev1.ResourceCPU:    resource.MustParse("250m"),
									corev1.ResourceMemory: resource.MustParse("512Mi"),
								},
							},
							ReadinessProbe: &corev1.Probe{
								ProbeHandler: corev1.ProbeHandler{
									HTTPGet: &corev1.HTTPGetAction{
										Path: healthPath,
										Port: intstr.FromInt(spec.Port),
									},
								},
								InitialDelaySeconds: 10,
								PeriodSeconds:       5,
							},
							LivenessProbe: &corev1.Probe{
								ProbeHandler: corev1.ProbeHandler{
									HTTPGet: &corev1.HTTPGetAction{
										Path: healthPath,
										Port: intstr.FromInt(spec.Port),
									},
								},
								InitialDelaySeconds: 30,
								PeriodSeconds:       10,
							},
						},
					},
				},
			},
		},
	}
}

func (p *Provider) buildService(spec fleet.ServiceSpec) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.ProjectID,
			Namespace: p.namespace,
			Labels:    p.labels(spec.ProjectID),
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{projectLabel: spec.ProjectID},
			Ports: []corev1.ServicePort{
				{
					Port:       80,
					TargetPort: intstr.FromInt(spec.Port),
				},
			},
		},
	}
}

func (p *Provider) buildIngress(spec fleet.ServiceSpec) *networkingv1.Ingress {
	pathType := networkingv1.PathTypePrefix
	ingress := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.ProjectID,
			Namespace: p.namespace,
			Labels:    p.labels(spec.ProjectID),
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{
				{
					Host: p.gatewayDomain,
					IngressRuleValue: networkingv1.IngressRuleValue{
						HTTP: &networkingv1.HTTPIngressRuleValue{
							Paths: []networkingv1.HTTPIngressPath{
								{
									Path:     "/" + spec.ProjectID,
									PathType: &pathType,
									Backend: networkingv1.IngressBackend{
										Service: &networkingv1.IngressServiceBackend{
											Name: spec.ProjectID,
											Port: networkingv1.ServiceBackendPort{Number: 80},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
	if p.ingressClass != "" {
		ingress.Spec.IngressClassName = &p.ingressClass
	}
	return ingress
}

func (p *Provider) labels(projectID string) map[string]string {
	return map[string]string{
		managedByLabel: managedByValue,
		projectLabel:   projectID,
	}
}
