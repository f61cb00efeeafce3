package libgraph

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	// TenantID and ClientID identify an app registration for the
	// device-code login path. Empty when only browser-based acquisition
	// is used.
	TenantID string   `toml:"tenant_id,omitempty"`
	ClientID string   `toml:"client_id,omitempty"`
	Scopes   []string `toml:"scopes,omitempty"`

	Timezone    string `toml:"timezone,omitempty"`
	Browser     string `toml:"browser,omitempty"`
	ExplorerURL string `toml:"explorer_url,omitempty"`
}

// ConfigManager handles configuration persistence
type ConfigManager struct {
	configPath string
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() (*ConfigManager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".meetfetch")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	return &ConfigManager{
		configPath: filepath.Join(configDir, "config.toml"),
	}, nil
}

// Save saves the configuration to disk
func (cm *ConfigManager) Save(config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cm.configPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Load loads the configuration from disk, applying defaults for missing
// values.
func (cm *ConfigManager) Load() (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.Scopes) == 0 {
		config.Scopes = []string{"https://graph.microsoft.com/.default"}
	}
	if config.Timezone == "" {
		config.Timezone = "Asia/Jerusalem"
	}
	if config.Browser == "" {
		config.Browser = "chrome"
	}

	return config, nil
}
