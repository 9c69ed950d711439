package userconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = "unigest"
	configFileName = "config.yaml"

	// DefaultAPIURL is used when neither the config file nor the environment
	// names a server
	DefaultAPIURL = "http://localhost:8080"

	envAPIURL  = "UNIGEST_API_URL"
	envTimeout = "UNIGEST_API_TIMEOUT"
	envLogLvl  = "UNIGEST_LOG_LEVEL"
)

// UserConfig represents the user's local configuration stored in ~/.config/unigest/config.yaml
type UserConfig struct {
	APIURL   string        `yaml:"api_url,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	LogLevel string        `yaml:"log_level,omitempty"`

	// ReturnTo is the command interrupted by the last redirect to login
	ReturnTo string `yaml:"return_to,omitempty"`
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", homeErr)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, configDirName, configFileName), nil
}

// Load reads the user configuration file and applies environment overrides
func Load() (*UserConfig, string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, "", err
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		return nil, "", err
	}
	return cfg, configPath, nil
}

// LoadFrom reads the configuration at path. A missing file yields defaults.
func LoadFrom(path string) (*UserConfig, error) {
	cfg := &UserConfig{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse user config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return cfg, nil
}

func (c *UserConfig) applyEnv() error {
	if v := os.Getenv(envAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(envTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", envTimeout, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv(envLogLvl); v != "" {
		c.LogLevel = v
	}
	return nil
}

// SaveTo writes the configuration to path
func SaveTo(path string, cfg *UserConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// SetReturnTo records where to resume after the next login
func SetReturnTo(path, location string) error {
	cfg, err := readRaw(path)
	if err != nil {
		return err
	}
	cfg.ReturnTo = location
	return SaveTo(path, cfg)
}

// TakeReturnTo returns and forgets the recorded location
func TakeReturnTo(path string) (string, error) {
	cfg, err := readRaw(path)
	if err != nil {
		return "", err
	}
	location := cfg.ReturnTo
	if location == "" {
		return "", nil
	}
	cfg.ReturnTo = ""
	return location, SaveTo(path, cfg)
}

// readRaw reads the file without environment overrides so they are never
// persisted
func readRaw(path string) (*UserConfig, error) {
	cfg := &UserConfig{}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}
	return cfg, nil
}
