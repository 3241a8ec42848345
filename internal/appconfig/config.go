package appconfig

import (
	"os"
	"path/filepath"

	"github.com/portwayhq/portway/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	HTTP          HTTPConfig      `mapstructure:"http" yaml:"http"`
	Protocols     ProtocolsConfig `mapstructure:"protocols" yaml:"protocols"`
	Service       ServiceConfig   `mapstructure:"service" yaml:"service"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// HTTPConfig configures the HTTP server. HistorySize bounds the per-session
// event history kept for SSE replay.
type HTTPConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	BasePath    string `mapstructure:"base_path" yaml:"base_path"`
	HistorySize int    `mapstructure:"history_size" yaml:"history_size"`
}

// ProtocolsConfig points at an optional manifest of extra protocol
// descriptors loaded on top of the builtins.
type ProtocolsConfig struct {
	ManifestPath string `mapstructure:"manifest_path" yaml:"manifest_path"`
}

// ServiceConfig controls tabs store behavior.
type ServiceConfig struct {
	TabTitleMax    int    `mapstructure:"tab_title_max" yaml:"tab_title_max"`
	TabTitleSuffix string `mapstructure:"tab_title_suffix" yaml:"tab_title_suffix"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		HTTP: HTTPConfig{
			Addr:        ":27490",
			BasePath:    "",
			HistorySize: 1000,
		},
		Protocols: ProtocolsConfig{
			ManifestPath: "",
		},
		Service: ServiceConfig{
			TabTitleMax:    schema.DefaultTabTitleMax,
			TabTitleSuffix: "…",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".portway", "config.yaml"), nil
}
