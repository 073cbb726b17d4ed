package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/skillsenselab/callscribe/logger"
	"github.com/skillsenselab/callscribe/pipeline"
	"github.com/skillsenselab/callscribe/server"
	"github.com/skillsenselab/callscribe/streaming"
)

var validate = validator.New()

// CollaboratorConfig selects and configures one external collaborator. The
// settings map is passed verbatim to the provider registry's factory.
type CollaboratorConfig struct {
	Provider string         `yaml:"provider" mapstructure:"provider" validate:"required"`
	Settings map[string]any `yaml:"settings" mapstructure:"settings"`
}

// DiarizationConfig is a collaborator that is off by default.
type DiarizationConfig struct {
	Enabled  bool           `yaml:"enabled" mapstructure:"enabled"`
	Provider string         `yaml:"provider" mapstructure:"provider"`
	Settings map[string]any `yaml:"settings" mapstructure:"settings"`
}

// AppConfig is the full application configuration.
type AppConfig struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging   logger.Config    `yaml:"logging" mapstructure:"logging"`
	Server    server.Config    `yaml:"server" mapstructure:"server"`
	Pipeline  pipeline.Config  `yaml:"pipeline" mapstructure:"pipeline"`
	Streaming streaming.Config `yaml:"streaming" mapstructure:"streaming"`

	ASR         CollaboratorConfig `yaml:"asr" mapstructure:"asr"`
	LLM         CollaboratorConfig `yaml:"llm" mapstructure:"llm"`
	Diarization DiarizationConfig  `yaml:"diarization" mapstructure:"diarization"`
}

// ApplyDefaults fills unset fields with working local-stack defaults.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "callscribe"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()

	if c.ASR.Provider == "" {
		c.ASR.Provider = "whisper"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}
	if c.Diarization.Provider == "" {
		c.Diarization.Provider = "pyannote"
	}
}

// Validate checks the configuration after defaults were applied.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	if c.Diarization.Enabled && c.Diarization.Provider == "" {
		return fmt.Errorf("config.diarization: provider is required when enabled")
	}
	return nil
}
