package schema

import "errors"

// ServiceConfig defines defaults and limits for the tabs store.
type ServiceConfig struct {
	// TabTitleMax truncates tab titles longer than this many runes.
	TabTitleMax int
	// TabTitleSuffix replaces the tail of a truncated title.
	TabTitleSuffix string
}

// DefaultTabTitleMax is the default tab title display limit.
const DefaultTabTitleMax = 32

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.TabTitleMax <= 0 {
		cfg.TabTitleMax = DefaultTabTitleMax
	}
	if cfg.TabTitleSuffix == "" {
		cfg.TabTitleSuffix = "…"
	}
	if cfg.TabTitleMax <= len([]rune(cfg.TabTitleSuffix)) {
		return ServiceConfig{}, errors.New("tab title max must exceed suffix length")
	}
	return cfg, nil
}
