// Package config loads the application settings from the per-user
// config file, with environment variables as fallback for the server
// credentials.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
)

// Config holds the user settings.
type Config struct {
	ServerURL  string `json:"server_url"  mapstructure:"server_url"`
	APIKey     string `json:"api_key"     mapstructure:"api_key"`
	UserID     string `json:"user_id"     mapstructure:"user_id"`
	DeviceName string `json:"device_name" mapstructure:"device_name"`
	LogLevel   string `json:"log_level"   mapstructure:"log_level"`
}

// Environment variables consulted when the config file leaves the
// matching field empty.
const (
	envServerURL = "JELLYCAST_SERVER"
	envAPIKey    = "JELLYCAST_API_KEY"
	envUserID    = "JELLYCAST_USER_ID"
)

func defaultConfig() *Config {
	return &Config{
		DeviceName: "Jellycast",
		LogLevel:   "info",
	}
}

// GetAppConfig loads the settings file, creating it with defaults on
// first run. Empty credential fields fall back to the environment.
func GetAppConfig() (*Config, error) {
	path, err := appPath()
	if err != nil {
		return nil, fmt.Errorf("GetAppConfig: failed to access config path due to error %w:", err)
	}
	return loadConfig(path)
}

func loadConfig(path string) (*Config, error) {
	cfgfile, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return nil, fmt.Errorf("GetAppConfig: failed to create default path due to error %w:", err)
			}

			conf := defaultConfig()
			b, err := json.Marshal(conf)
			if err != nil {
				return nil, fmt.Errorf("GetAppConfig: failed to convert and store default config %w:", err)
			}
			if err := os.WriteFile(path, b, 0644); err != nil {
				return nil, fmt.Errorf("GetAppConfig: failed to create default config due to error %w:", err)
			}

			applyEnv(conf)
			return conf, nil
		}

		return nil, fmt.Errorf("GetAppConfig: failed to open config due to error %w:", err)
	}
	defer cfgfile.Close()

	// Decode into a generic map first so unknown keys from older or
	// newer versions of the file are tolerated.
	var raw map[string]any
	if err := json.NewDecoder(cfgfile).Decode(&raw); err != nil {
		return nil, fmt.Errorf("GetAppConfig: failed to decode config due to error %w:", err)
	}

	conf := defaultConfig()
	if err := mapstructure.Decode(raw, conf); err != nil {
		return nil, fmt.Errorf("GetAppConfig: failed to map config due to error %w:", err)
	}

	applyEnv(conf)
	return conf, nil
}

func applyEnv(conf *Config) {
	if conf.ServerURL == "" {
		conf.ServerURL = os.Getenv(envServerURL)
	}
	if conf.APIKey == "" {
		conf.APIKey = os.Getenv(envAPIKey)
	}
	if conf.UserID == "" {
		conf.UserID = os.Getenv(envUserID)
	}
}

func appPath() (string, error) {
	oscfg, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("appPath: failed to get config file due to error %w:", err)
	}

	return filepath.Join(oscfg, "jellycast", "settings.json"), nil
}

// SaveAppConfig writes the settings back to the config file.
func (s *Config) SaveAppConfig() error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("SaveAppConfig: failed to marshal json due to error %w:", err)
	}

	path, err := appPath()
	if err != nil {
		return fmt.Errorf("SaveAppConfig: failed to access config path due to error %w:", err)
	}

	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("SaveAppConfig: failed save config due to error %w:", err)
	}

	return nil
}
