package types

import (
	"encoding/json"
	"fmt"

	"bennypowers.dev/vuextract/internal/config"
)

// SettingsKey is the section of workspace/didChangeConfiguration settings
// the server reads.
const SettingsKey = "vuextract"

// Commands served by workspace/executeCommand
const (
	// CommandExtractComponent takes [uri, range, path?]
	CommandExtractComponent = "vuextract.extractComponent"
	// CommandInspectType takes [uri, position] and returns the scraped type
	CommandInspectType = "vuextract.inspectType"
)

// ServerConfig is the server configuration. The same settings are read
// from the project config file and from the client.
type ServerConfig = config.Config

// DefaultConfig returns the default server configuration
func DefaultConfig() ServerConfig {
	return config.Default()
}

// ParseSettings reads the SettingsKey section of client settings, as sent
// in workspace/didChangeConfiguration or initializationOptions. Missing
// settings yield the zero config, which overrides nothing.
func ParseSettings(settings any) (ServerConfig, error) {
	var cfg ServerConfig
	if settings == nil {
		return cfg, nil
	}
	section, ok := settings.(map[string]any)
	if !ok {
		return cfg, fmt.Errorf("settings is not an object")
	}
	ours, exists := section[SettingsKey]
	if !exists || ours == nil {
		return cfg, nil
	}

	data, err := json.Marshal(ours)
	if err != nil {
		return cfg, fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}
