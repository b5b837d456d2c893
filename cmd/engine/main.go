package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ecr"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/skylift/skylift/engine/internal/builder"
	"github.com/skylift/skylift/engine/internal/config"
	"github.com/skylift/skylift/engine/internal/database"
	"github.com/skylift/skylift/engine/internal/deployer"
	"github.com/skylift/skylift/engine/internal/events"
	ecsfleet "github.com/skylift/skylift/engine/internal/fleet/ecs"
	kubefleet "github.com/skylift/skylift/engine/internal/fleet/kube"
	"github.com/skylift/skylift/engine/internal/handlers/projects"
	"github.com/skylift/skylift/engine/internal/handlers/runs"
	"github.com/skylift/skylift/engine/internal/manifest"
	"github.com/skylift/skylift/engine/internal/orchestrator"
	redisq "github.com/skylift/skylift/engine/internal/redis"
	"github.com/skylift/skylift/engine/internal/routes"
	"github.com/skylift/skylift/engine/internal/websocket"
	"github.com/skylift/skylift/engine/pkg/awsconf"
	"github.com/skylift/skylift/engine/pkg/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	queue, err := redisq.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	awsCfg, err := awsconf.Load(ctx, cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}

	buildTimeout := time.Duration(cfg.BuildTimeoutMinutes) * time.Minute
	healthDeadline := time.Duration(cfg.HealthDeadlineMinutes) * time.Minute

	reg := registry.New(ecr.NewFromConfig(awsCfg))
	imageBuilder := builder.NewQueueBuilder(queue, reg, buildTimeout)

	ecsProvider := ecsfleet.NewProvider(
		awsecs.NewFromConfig(awsCfg),
		elbv2.NewFromConfig(awsCfg),
		cfg.Infra,
		cfg.AWSRegion,
		healthDeadline,
	)

	deployers := map[string]*deployer.Deployer{
		"ecs": deployer.New(imageBuilder, ecsProvider, reg, queue),
	}

	// The Kubernetes provider only registers when a cluster is reachable.
	if clientset, kubeErr := kubefleet.NewClientset(); kubeErr != nil {
		log.Printf("[Main] Kubernetes provider disabled: %v", kubeErr)
	} else {
		kubeProvider := kubefleet.NewProvider(
			clientset,
			cfg.Infra.KubeNamespace,
			cfg.Infra.KubeIngressClass,
			cfg.Infra.GatewayDomain,
			healthDeadline,
		)
		deployers["kubernetes"] = deployer.New(imageBuilder, kubeProvider, reg, queue)
	}

	recorder := manifest.NewRecorder(cfg.ManifestPath, db)
	publisher := events.NewPublisher(queue)

	orchestrators := make(map[string]*orchestrator.Orchestrator, len(deployers))
	for provider, d := range deployers {
		orchestrators[provider] = orchestrator.New(d, recorder, publisher)
	}

	runsHandler := runs.NewHandler(db, orchestrators, publisher)
	projectsHandler := projects.NewHandler(deployers)

	hub := websocket.NewHub()
	go websocket.RunSubscriber(ctx, queue, hub)

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CorsOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,X-Api-Key",
		AllowCredentials: true,
	}))

	routes.Setup(app, cfg, runsHandler, projectsHandler, hub)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  "error",
		"message": err.Error(),
	})
}
