package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/skylift/skylift/engine/internal/models"
)

// stubDeployer records the order and env of every deploy it receives and
// answers from per-service canned results.
type stubDeployer struct {
	mu       sync.Mutex
	order    []string
	envs     map[string]map[string]string
	urls     map[string]string
	failures map[string]error
	onDeploy func(svc models.Service)
}

func newStubDeployer() *stubDeployer {
	return &stubDeployer{
		envs:     make(map[string]map[string]string),
		urls:     make(map[string]string),
		failures: make(map[string]error),
	}
}

func (s *stubDeployer) Deploy(ctx context.Context, svc models.Service) (string, error) {
	s.mu.Lock()
	s.order = append(s.order, svc.Name)
	env := make(map[string]string, len(svc.Env))
	for k, v := range svc.Env {
		env[k] = v
	}
	s.envs[svc.Name] = env
	s.mu.Unlock()

	if s.onDeploy != nil {
		s.onDeploy(svc)
	}
	if err, ok := s.failures[svc.Name]; ok {
		return "", err
	}
	return s.urls[svc.Name], nil
}

type capturedOutcome struct {
	outcome *Outcome
}

func (c *capturedOutcome) Record(ctx context.Context, outcome *Outcome) {
	c.outcome = outcome
}

func backendService(name string) models.Service {
	return models.Service{Name: name, Kind: models.ServiceKindBackend, Port: 8080}
}

func frontendService(name, framework string) models.Service {
	return models.Service{Name: name, Kind: models.ServiceKindFrontend, Framework: framework}
}

func TestRunDeploysBackendsBeforeFrontends(t *testing.T) {
	deployer := newStubDeployer()
	deployer.urls["api"] = "https://gw.example.com/api"
	deployer.urls["admin"] = "https://gw.example.com/admin"
	deployer.urls["web"] = "https://gw.example.com/web"

	o := New(deployer, nil, nil)
	// Frontend listed first; the plan must still run it last.
	outcome := o.Run(context.Background(), "run-1", []models.Service{
		frontendService("web", "react"),
		backendService("api"),
		{Name: "admin", Kind: models.ServiceKindFullstack},
	})

	want := []string{"api", "admin", "web"}
	if len(deployer.order) != 3 {
		t.Fatalf("order = %v", deployer.order)
	}
	for i, name := range want {
		if deployer.order[i] != name {
			t.Fatalf("order = %v, want %v", deployer.order, want)
		}
	}
	if !outcome.Success {
		t.Error("run not successful")
	}
}

func TestRunInjectsBackendURLIntoFrontends(t *testing.T) {
	deployer := newStubDeployer()
	deployer.urls["api"] = "https://gw.example.com/api"
	deployer.urls["web"] = "https://gw.example.com/web"

	o := New(deployer, nil, nil)
	o.Run(context.Background(), "run-1", []models.Service{
		backendService("api"),
		frontendService("web", "react"),
	})

	env := deployer.envs["web"]
	if env["API_URL"] != "https://gw.example.com/api" {
		t.Errorf("API_URL = %q", env["API_URL"])
	}
	if env["REACT_APP_API_URL"] != "https://gw.example.com/api" {
		t.Errorf("REACT_APP_API_URL = %q", env["REACT_APP_API_URL"])
	}
	// The backend itself gets nothing injected.
	if _, ok := deployer.envs["api"]["API_URL"]; ok {
		t.Error("API_URL injected into the backend")
	}
}

func TestRunSkipsInjectionWithoutBackendURL(t *testing.T) {
	deployer := newStubDeployer()
	deployer.urls["web"] = "https://gw.example.com/web"

	o := New(deployer, nil, nil)
	o.Run(context.Background(), "run-1", []models.Service{
		frontendService("web", "vue"),
	})

	if _, ok := deployer.envs["web"]["API_URL"]; ok {
		t.Error("API_URL injected with no backend in the run")
	}
}

func TestRunContinuesAfterServiceFailure(t *testing.T) {
	deployer := newStubDeployer()
	deployer.urls["api"] = "https://gw.example.com/api"
	deployer.failures["web"] = errors.New("image build failed")
	deployer.urls["docs"] = "https://gw.example.com/docs"

	recorder := &capturedOutcome{}
	o := New(deployer, recorder, nil)
	outcome := o.Run(context.Background(), "run-1", []models.Service{
		backendService("api"),
		frontendService("web", "react"),
		frontendService("docs", ""),
	})

	if outcome.Success {
		t.Error("run reported success despite a failed service")
	}
	if len(deployer.order) != 3 {
		t.Errorf("order = %v, want all three attempted", deployer.order)
	}

	byName := make(map[string]ServiceRecord)
	for _, rec := range outcome.Services {
		byName[rec.Service] = rec
	}
	if byName["api"].Status != models.DeployStatusDeployed {
		t.Errorf("api status = %s", byName["api"].Status)
	}
	if byName["web"].Status != models.DeployStatusFailed || byName["web"].Error == "" {
		t.Errorf("web record = %+v", byName["web"])
	}
	if byName["docs"].Status != models.DeployStatusDeployed {
		t.Errorf("docs status = %s", byName["docs"].Status)
	}

	// The backend's URL survives into the outcome even though the run failed.
	if outcome.URLs.Backend != "https://gw.example.com/api" {
		t.Errorf("backend url = %q", outcome.URLs.Backend)
	}
	if outcome.URLs.API != "https://gw.example.com/api" {
		t.Errorf("api url = %q", outcome.URLs.API)
	}
	if recorder.outcome == nil {
		t.Fatal("recorder never invoked")
	}
	if recorder.outcome.RunID != "run-1" {
		t.Errorf("recorded run id = %q", recorder.outcome.RunID)
	}
}

func TestRunPrimaryURLsAreFirstOfKind(t *testing.T) {
	deployer := newStubDeployer()
	deployer.urls["api-1"] = "https://gw.example.com/api-1"
	deployer.urls["api-2"] = "https://gw.example.com/api-2"
	deployer.urls["web-1"] = "https://gw.example.com/web-1"
	deployer.urls["web-2"] = "https://gw.example.com/web-2"

	o := New(deployer, nil, nil)
	outcome := o.Run(context.Background(), "run-1", []models.Service{
		backendService("api-1"),
		backendService("api-2"),
		frontendService("web-1", ""),
		frontendService("web-2", ""),
	})

	if outcome.URLs.Backend != "https://gw.example.com/api-1" {
		t.Errorf("backend url = %q", outcome.URLs.Backend)
	}
	if outcome.URLs.Frontend != "https://gw.example.com/web-1" {
		t.Errorf("frontend url = %q", outcome.URLs.Frontend)
	}
}

func TestRunCancellationSkipsUnstartedServices(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	deployer := newStubDeployer()
	deployer.urls["api"] = "https://gw.example.com/api"
	deployer.onDeploy = func(svc models.Service) {
		if svc.Name == "api" {
			cancel()
		}
	}

	o := New(deployer, nil, nil)
	outcome := o.Run(ctx, "run-1", []models.Service{
		backendService("api"),
		frontendService("web", "react"),
	})

	if len(deployer.order) != 1 || deployer.order[0] != "api" {
		t.Errorf("order = %v, want only api", deployer.order)
	}

	byName := make(map[string]ServiceRecord)
	for _, rec := range outcome.Services {
		byName[rec.Service] = rec
	}
	// The in-flight service ran to its terminal state.
	if byName["api"].Status != models.DeployStatusDeployed {
		t.Errorf("api status = %s", byName["api"].Status)
	}
	// The unstarted one stays pending, and a pending service fails the run.
	if byName["web"].Status != models.DeployStatusPending {
		t.Errorf("web status = %s", byName["web"].Status)
	}
	if outcome.Success {
		t.Error("cancelled run reported success")
	}
}

func TestBuildPlanOmitsEmptyStages(t *testing.T) {
	plan := BuildPlan([]models.Service{
		frontendService("web", "react"),
		frontendService("docs", ""),
	})
	if len(plan) != 1 {
		t.Fatalf("plan has %d stages, want 1", len(plan))
	}
	if len(plan[0]) != 2 {
		t.Errorf("stage size = %d", len(plan[0]))
	}
}

func TestInjectBackendURLUnknownFramework(t *testing.T) {
	svc := frontendService("web", "elm")
	injectBackendURL(&svc, "https://gw.example.com/api")
	if svc.Env["API_URL"] != "https://gw.example.com/api" {
		t.Errorf("API_URL = %q", svc.Env["API_URL"])
	}
	if len(svc.Env) != 1 {
		t.Errorf("env = %v, want only the generic key", svc.Env)
	}
}
