// Package config loads the process-wide ARM coordinates from environment
// variables and an optional YAML override file, and reads the -repl and
// -config flags.
package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/azure-connectors/arm-mcp-server/internal/armcontext"
)

// Config is what LoadConfig produces: the ArmContext the whole server is
// parameterized by, plus the REPL and file-override switches.
type Config struct {
	Context armcontext.Context
	Repl    bool
	File    string
}

// fileOverrides is the shape of an optional YAML config file; any field set
// here overrides the corresponding environment variable.
type fileOverrides struct {
	SubscriptionID string `yaml:"subscriptionId"`
	ResourceGroup  string `yaml:"resourceGroup"`
	Location       string `yaml:"location"`
}

// LoadConfig reads ARM_MCP_SUBSCRIPTION_ID, ARM_MCP_RESOURCE_GROUP, and
// ARM_MCP_LOCATION from the environment, then applies --repl and --config
// from args, then applies any fields set in the YAML file named by
// --config, which take precedence over the environment.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{
		Context: armcontext.Context{
			SubscriptionID: os.Getenv("ARM_MCP_SUBSCRIPTION_ID"),
			ResourceGroup:  os.Getenv("ARM_MCP_RESOURCE_GROUP"),
			Location:       os.Getenv("ARM_MCP_LOCATION"),
		},
	}

	for i, arg := range args {
		switch arg {
		case "-repl", "--repl":
			cfg.Repl = true
		case "-config", "--config":
			if i+1 < len(args) {
				cfg.File = args[i+1]
			}
		}
	}

	if cfg.File != "" {
		if err := applyFileOverrides(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func applyFileOverrides(cfg *Config) error {
	raw, err := os.ReadFile(cfg.File)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", cfg.File, err)
	}
	var overrides fileOverrides
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return fmt.Errorf("config: parsing %s: %w", cfg.File, err)
	}
	if overrides.SubscriptionID != "" {
		cfg.Context.SubscriptionID = overrides.SubscriptionID
	}
	if overrides.ResourceGroup != "" {
		cfg.Context.ResourceGroup = overrides.ResourceGroup
	}
	if overrides.Location != "" {
		cfg.Context.Location = overrides.Location
	}
	log.Printf("config: applied overrides from %s", cfg.File)
	return nil
}

// Validate checks that every field StartupScan needs is present.
func (c *Config) Validate() error {
	if c.Context.SubscriptionID == "" {
		return fmt.Errorf("config: ARM_MCP_SUBSCRIPTION_ID is required")
	}
	if c.Context.ResourceGroup == "" {
		return fmt.Errorf("config: ARM_MCP_RESOURCE_GROUP is required")
	}
	if c.Context.Location == "" {
		return fmt.Errorf("config: ARM_MCP_LOCATION is required")
	}
	return nil
}
