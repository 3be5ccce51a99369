package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models courseline.yml.
type Config struct {
	Catalog struct {
		Name string `yaml:"name"`
	} `yaml:"catalog"`
	Server struct {
		Addr        string   `yaml:"addr"`
		BasePath    string   `yaml:"base_path"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Auth struct {
		BootstrapAdmin string `yaml:"bootstrap_admin"`
	} `yaml:"auth"`
	Pagination struct {
		DefaultPageSize int `yaml:"default_page_size"`
		MaxPageSize     int `yaml:"max_page_size"`
	} `yaml:"pagination"`
	Reviews struct {
		RequireEnrollment bool `yaml:"require_enrollment"`
	} `yaml:"reviews"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	Enabled        *bool    `yaml:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with cl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Catalog.Name) == "" {
		return fmt.Errorf("config.catalog.name is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Pagination.DefaultPageSize <= 0 {
		return fmt.Errorf("config.pagination.default_page_size must be positive")
	}
	if c.Pagination.MaxPageSize < c.Pagination.DefaultPageSize {
		return fmt.Errorf("config.pagination.max_page_size must be at least default_page_size")
	}
	for i, hook := range c.Webhooks {
		u, err := url.Parse(hook.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config.webhooks[%d].url must be an absolute URL", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
		for _, evt := range hook.Events {
			if strings.TrimSpace(evt) == "" {
				return fmt.Errorf("config.webhooks[%d] has empty event type", i)
			}
		}
	}
	return nil
}

// PageSize clamps a requested page size into the configured bounds.
func (c *Config) PageSize(requested int) int {
	if requested <= 0 {
		return c.Pagination.DefaultPageSize
	}
	if requested > c.Pagination.MaxPageSize {
		return c.Pagination.MaxPageSize
	}
	return requested
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "courseline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(name string) string {
	return fmt.Sprintf(defaultTemplate, name)
}

// LoadOptional falls back to Default when the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault("courseline"))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
// Keys missing from data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `catalog:
  name: %s

server:
  addr: 127.0.0.1:8080
  base_path: /v1
  cors_origins: []

auth:
  bootstrap_admin: ""

pagination:
  default_page_size: 10
  max_page_size: 100

reviews:
  require_enrollment: true

webhooks: []
`
