package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfigMissing indicates that required shared-infrastructure
// configuration is absent at startup. Nothing can be deployed without it.
var ErrConfigMissing = errors.New("missing required configuration")

// Infrastructure holds the fixed identifiers of the shared fleet the engine
// deploys onto. Loaded once at startup and immutable thereafter.
type Infrastructure struct {
	ClusterName      string   `yaml:"clusterName"`
	VpcID            string   `yaml:"vpcId"`
	SubnetIDs        []string `yaml:"subnetIds"`
	SecurityGroupIDs []string `yaml:"securityGroupIds"`
	ExecutionRoleArn string   `yaml:"executionRoleArn"`
	LogGroup         string   `yaml:"logGroup"`
	RegistryURI      string   `yaml:"registryUri"`

	// The HTTP listener is required; HTTPS is optional and attached best-effort.
	HTTPListenerArn  string `yaml:"httpListenerArn"`
	HTTPSListenerArn string `yaml:"httpsListenerArn"`

	// GatewayDomain is the DNS name of the shared gateway; deployed services
	// are reachable at https://<GatewayDomain>/<projectId>.
	GatewayDomain string `yaml:"gatewayDomain"`

	// Kubernetes provider settings (only used when a run targets it).
	KubeNamespace    string `yaml:"kubeNamespace"`
	KubeIngressClass string `yaml:"kubeIngressClass"`
}

type Config struct {
	Port        string
	DatabaseURL string

	// AWS
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// Redis (builder queue + progress events)
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string

	// API key for internal service authentication (CLI, builder, dashboards)
	ApiKey string

	// CORS
	CorsOrigins string

	// ManifestPath is where the deployment manifest artifact is written.
	ManifestPath string

	// BuildTimeoutMinutes bounds how long a single image build may take.
	BuildTimeoutMinutes int

	// HealthDeadlineMinutes bounds how long a service may take to converge.
	HealthDeadlineMinutes int

	Infra Infrastructure
}

// Load reads configuration from the environment (and .env if present).
// Shared-infrastructure identifiers can alternatively come from a YAML file
// pointed to by INFRA_FILE; individual environment variables override it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		AWSRegion:             getEnv("AWS_REGION", "eu-west-1"),
		AWSAccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		RedisHost:             getEnv("REDIS_HOST", "localhost"),
		RedisPort:             getEnv("REDIS_PORT", "6379"),
		RedisUsername:         getEnv("REDIS_USERNAME", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		ApiKey:                getEnv("API_KEY", ""),
		CorsOrigins:           getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),
		ManifestPath:          getEnv("MANIFEST_PATH", "deployment-manifest.json"),
		BuildTimeoutMinutes:   getEnvInt("BUILD_TIMEOUT_MINUTES", 15),
		HealthDeadlineMinutes: getEnvInt("HEALTH_DEADLINE_MINUTES", 5),
	}

	if infraFile := os.Getenv("INFRA_FILE"); infraFile != "" {
		data, err := os.ReadFile(infraFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read infrastructure file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg.Infra); err != nil {
			return nil, fmt.Errorf("failed to parse infrastructure file: %w", err)
		}
	}

	cfg.Infra.ClusterName = getEnv("FLEET_CLUSTER", cfg.Infra.ClusterName)
	cfg.Infra.VpcID = getEnv("FLEET_VPC_ID", cfg.Infra.VpcID)
	if subnets := os.Getenv("FLEET_SUBNET_IDS"); subnets != "" {
		cfg.Infra.SubnetIDs = splitList(subnets)
	}
	if groups := os.Getenv("FLEET_SECURITY_GROUP_IDS"); groups != "" {
		cfg.Infra.SecurityGroupIDs = splitList(groups)
	}
	cfg.Infra.ExecutionRoleArn = getEnv("FLEET_EXECUTION_ROLE_ARN", cfg.Infra.ExecutionRoleArn)
	cfg.Infra.LogGroup = getEnv("FLEET_LOG_GROUP", cfg.Infra.LogGroup)
	cfg.Infra.RegistryURI = getEnv("FLEET_REGISTRY_URI", cfg.Infra.RegistryURI)
	cfg.Infra.HTTPListenerArn = getEnv("GATEWAY_HTTP_LISTENER_ARN", cfg.Infra.HTTPListenerArn)
	cfg.Infra.HTTPSListenerArn = getEnv("GATEWAY_HTTPS_LISTENER_ARN", cfg.Infra.HTTPSListenerArn)
	cfg.Infra.GatewayDomain = getEnv("GATEWAY_DOMAIN", cfg.Infra.GatewayDomain)
	cfg.Infra.KubeNamespace = getEnv("KUBE_NAMESPACE", cfg.Infra.KubeNamespace)
	cfg.Infra.KubeIngressClass = getEnv("KUBE_INGRESS_CLASS", cfg.Infra.KubeIngressClass)

	return cfg, nil
}

// Validate checks that the shared-infrastructure identifiers the engine
// cannot run without are present. It is called once before any per-service
// work begins; a failure here aborts the whole process.
func (c *Config) Validate() error {
	var missing []string

	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	require("FLEET_CLUSTER", c.Infra.ClusterName)
	require("FLEET_VPC_ID", c.Infra.VpcID)
	require("FLEET_EXECUTION_ROLE_ARN", c.Infra.ExecutionRoleArn)
	require("FLEET_LOG_GROUP", c.Infra.LogGroup)
	require("GATEWAY_HTTP_LISTENER_ARN", c.Infra.HTTPListenerArn)
	require("GATEWAY_DOMAIN", c.Infra.GatewayDomain)
	if len(c.Infra.SubnetIDs) == 0 {
		missing = append(missing, "FLEET_SUBNET_IDS")
	}
	if len(c.Infra.SecurityGroupIDs) == 0 {
		missing = append(missing, "FLEET_SECURITY_GROUP_IDS")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigMissing, strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
