package orchestrator

import "github.com/skylift/skylift/engine/internal/models"

// BuildPlan partitions services into stages: backends first, then
// fullstack, then frontends. Services within a stage are independent;
// a stage only starts after every service in the previous stage has
// reached a terminal status. That barrier is what makes backend URL
// injection into frontend builds sound.
func BuildPlan(services []models.Service) [][]models.Service {
	var backends, fullstacks, frontends []models.Service
	for _, svc := range services {
		switch svc.Kind {
		case models.ServiceKindBackend:
			backends = append(backends, svc)
		case models.ServiceKindFullstack:
			fullstacks = append(fullstacks, svc)
		default:
			frontends = append(frontends, svc)
		}
	}

	var plan [][]models.Service
	for _, stage := range [][]models.Service{backends, fullstacks, frontends} {
		if len(stage) > 0 {
			plan = append(plan, stage)
		}
	}
	return plan
}
