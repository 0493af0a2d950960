// Package config loads service configuration from environment variables,
// with an optional YAML journey template file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/brandsight/rfpd/internal/project"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8090"`

	// Lifecycle simulation
	ProcessingDelay time.Duration `envconfig:"PROCESSING_DELAY" default:"10s"`
	ReplyDelay      time.Duration `envconfig:"REPLY_DELAY" default:"600ms"`

	// Optional YAML override for the journey stage pipeline.
	JourneyTemplatePath string `envconfig:"JOURNEY_TEMPLATE_PATH"`

	// SeedDemoProjects controls the built-in showcase projects.
	SeedDemoProjects bool `envconfig:"SEED_DEMO_PROJECTS" default:"true"`

	// FollowExternalTopic makes the topic/URL synchronizer apply external
	// parameter changes after the initial seed (outward-only by default).
	FollowExternalTopic bool `envconfig:"FOLLOW_EXTERNAL_TOPIC" default:"false"`

	// HTTP surface
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"200"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("RFPD", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// journeyTemplateFile is the YAML shape of a stage template override.
type journeyTemplateFile struct {
	Stages []project.StageTemplate `yaml:"stages"`
}

// LoadJourneyTemplate reads a stage template from a YAML file. An empty
// path yields the built-in default pipeline.
func LoadJourneyTemplate(path string) ([]project.StageTemplate, error) {
	if path == "" {
		return project.DefaultJourneyTemplate(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading journey template: %w", err)
	}
	var f journeyTemplateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing journey template: %w", err)
	}
	if len(f.Stages) == 0 {
		return nil, fmt.Errorf("journey template %s defines no stages", path)
	}
	for i, st := range f.Stages {
		if st.Name == "" {
			return nil, fmt.Errorf("journey template %s: stage %d has no name", path, i)
		}
	}
	return f.Stages, nil
}
