// Package config loads and validates the rotor.yaml runtime configuration.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	rotorerrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/internal/secure"
)

// Config holds the runtime configuration.
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the rotor.yaml structure.
type Definition struct {
	Version  int            `yaml:"version" json:"version"`
	Store    StoreConfig    `yaml:"store" json:"store"`
	Secret   SecretConfig   `yaml:"secret" json:"secret"`
	Rotation RotationConfig `yaml:"rotation,omitempty" json:"rotation,omitempty"`
}

// StoreConfig identifies the document store the manager connects to.
type StoreConfig struct {
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	Database   string `yaml:"database" json:"database"`
	Collection string `yaml:"collection" json:"collection"`
	TimeoutMs  int    `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
}

// SecretConfig says where the rotating credential comes from: either a
// secret store lookup by name, or an inline literal value. The literal is
// sealed into protected memory at load time and the plaintext field wiped.
type SecretConfig struct {
	Name  string             `yaml:"name,omitempty" json:"name,omitempty"`
	Store *SecretStoreConfig `yaml:"store,omitempty" json:"store,omitempty"`
	Value string             `yaml:"value,omitempty" json:"value,omitempty"`

	sealed *secure.Credential
}

// SecretStoreConfig holds secret store-specific configuration. The store
// type picks the provider; the remaining keys are provider-specific and
// kept inline.
type SecretStoreConfig struct {
	Type      string                 `yaml:"type" json:"type"`
	TimeoutMs int                    `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	Config    map[string]interface{} `yaml:",inline" json:"-"`
}

// RotationConfig tunes the recovery machinery.
type RotationConfig struct {
	IntervalSeconds int `yaml:"interval_seconds,omitempty" json:"interval_seconds,omitempty"`
	MaxAttempts     int `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`
}

// Load reads, schema-validates and parses the rotor.yaml file.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return rotorerrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create a rotor.yaml or pass --config with its location",
			}
		}
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	if err := validateSchema(data); err != nil {
		return err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return rotorerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.Version != 0 {
		return rotorerrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your rotor.yaml file",
		}
	}

	if def.Secret.Name == "" && def.Secret.Value == "" {
		return rotorerrors.ConfigError{
			Field:      "secret",
			Message:    "no secret source configured",
			Suggestion: "Set 'secret.name' with a 'secret.store', or an inline 'secret.value'",
		}
	}

	// Seal the inline literal so it does not sit in plaintext on the heap
	// for the life of the process.
	if def.Secret.Value != "" {
		def.Secret.sealed = secure.NewCredentialFromString(def.Secret.Value)
		def.Secret.Value = ""
	}

	c.Definition = &def
	return nil
}

// Endpoint parses the configured store endpoint URL.
func (c *Config) Endpoint() (*url.URL, error) {
	endpoint, err := url.Parse(c.Definition.Store.Endpoint)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, rotorerrors.ConfigError{
			Field:      "store.endpoint",
			Value:      c.Definition.Store.Endpoint,
			Message:    "endpoint is not a valid URL",
			Suggestion: "Use the form scheme://user@host:port, e.g. postgres://app@db.example.com:5432",
		}
	}
	return endpoint, nil
}

// RequestTimeout returns the per-operation store timeout.
func (s StoreConfig) RequestTimeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// Interval returns the proactive poll interval.
func (r RotationConfig) Interval() time.Duration {
	if r.IntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(r.IntervalSeconds) * time.Second
}

// InlineSecret reveals the sealed inline literal, if one was configured.
func (s SecretConfig) InlineSecret() (string, bool, error) {
	if s.sealed == nil {
		return "", false, nil
	}
	value, err := s.sealed.Reveal()
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// GetTimeout returns the secret store call timeout in milliseconds.
func (s SecretStoreConfig) GetTimeout() int {
	if s.TimeoutMs <= 0 {
		return 30000
	}
	return s.TimeoutMs
}

func validateSchema(data []byte) error {
	// gojsonschema speaks JSON, so round-trip the YAML document through a
	// generic map first.
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return rotorerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(definitionSchema)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return rotorerrors.ConfigError{
			Message:    fmt.Sprintf("configuration does not match schema:\n  - %s", strings.Join(messages, "\n  - ")),
			Suggestion: "Compare your rotor.yaml against the documented configuration reference",
		}
	}

	return nil
}
