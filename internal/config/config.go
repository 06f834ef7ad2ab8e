package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/flowstate-io/flowstate/internal/ir"
)

const (
	// DefaultPath is where the CLI looks for the configuration when no
	// --config flag is given.
	DefaultPath = "flowstate.yaml"
	// DefaultStatePath is used when the configuration does not set one.
	DefaultStatePath = "flowstate.state.json"
	// DefaultAPIKeyEnv names the environment variable holding the API key.
	DefaultAPIKeyEnv = "FLOWSTATE_API_KEY"
)

// ResourceBlock is one named resource in the configuration. Everything
// besides name and depends_on is passed through as resource attributes.
type ResourceBlock struct {
	Name       string         `yaml:"name" validate:"required,resource_name"`
	DependsOn  []string       `yaml:"depends_on"`
	Attributes map[string]any `yaml:",inline"`
}

// Config is the project configuration file.
type Config struct {
	Project   string `yaml:"project" validate:"required,resource_name"`
	Host      string `yaml:"host" validate:"required,url"`
	APIKeyEnv string `yaml:"api_key_env"`
	StatePath string `yaml:"state_path"`

	Variables map[string]any `yaml:"variables"`
	CodeEnv   map[string]any `yaml:"code_env"`

	GitLibraries    []ResourceBlock `yaml:"git_libraries" validate:"dive"`
	Zones           []ResourceBlock `yaml:"zones" validate:"dive"`
	ManagedFolders  []ResourceBlock `yaml:"managed_folders" validate:"dive"`
	Datasets        []ResourceBlock `yaml:"datasets" validate:"dive"`
	ForeignDatasets []ResourceBlock `yaml:"foreign_datasets" validate:"dive"`
	Recipes         []ResourceBlock `yaml:"recipes" validate:"dive"`
	ExposedDatasets []ResourceBlock `yaml:"exposed_datasets" validate:"dive"`
	ExposedFolders  []ResourceBlock `yaml:"exposed_folders" validate:"dive"`
	Scenarios       []ResourceBlock `yaml:"scenarios" validate:"dive"`
}

var resourceNameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration cannot fail for a non-empty tag with a non-nil func.
	_ = v.RegisterValidation("resource_name", func(fl validator.FieldLevel) bool {
		return resourceNameRe.MatchString(fl.Field().String())
	})
	return v
}

// Load reads, parses, and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses and validates configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config syntax: %w", err)
	}

	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.StatePath == "" {
		cfg.StatePath = DefaultStatePath
	}

	if err := newValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// APIKey resolves the API key from the configured environment variable.
func (c *Config) APIKey() (string, error) {
	key := os.Getenv(c.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", c.APIKeyEnv)
	}
	return key, nil
}

// Resources flattens the configuration into the desired resource set, in
// declaration order. Variables and the default code environments become
// singleton resources other resources can reference as variables.main
// and code_env.main.
func (c *Config) Resources() []*ir.Resource {
	var out []*ir.Resource

	if len(c.Variables) > 0 {
		out = append(out, &ir.Resource{
			Type:       "variables",
			Name:       "main",
			Attributes: map[string]any{"values": c.Variables},
		})
	}
	if len(c.CodeEnv) > 0 {
		attrs := make(map[string]any, len(c.CodeEnv))
		for k, v := range c.CodeEnv {
			attrs[k] = v
		}
		out = append(out, &ir.Resource{
			Type:       "code_env",
			Name:       "main",
			Attributes: attrs,
		})
	}

	appendBlocks := func(typ string, blocks []ResourceBlock) {
		for _, b := range blocks {
			attrs := make(map[string]any, len(b.Attributes))
			for k, v := range b.Attributes {
				attrs[k] = v
			}
			out = append(out, &ir.Resource{
				Type:       typ,
				Name:       b.Name,
				Attributes: attrs,
				DependsOn:  append([]string{}, b.DependsOn...),
			})
		}
	}

	appendBlocks("git_library", c.GitLibraries)
	appendBlocks("zone", c.Zones)
	appendBlocks("managed_folder", c.ManagedFolders)
	appendBlocks("dataset", c.Datasets)
	appendBlocks("foreign_dataset", c.ForeignDatasets)
	appendBlocks("recipe", c.Recipes)
	appendBlocks("exposed_dataset", c.ExposedDatasets)
	appendBlocks("exposed_folder", c.ExposedFolders)
	appendBlocks("scenario", c.Scenarios)
	return out
}
