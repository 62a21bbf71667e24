package config

import (
	"time"

	"github.com/leapstack-labs/batonlint/internal/discovery"
	"github.com/leapstack-labs/batonlint/pkg/sqlast"
)

// Default configuration values.
const (
	DefaultDebounce = 500 * time.Millisecond
	DefaultLogLevel = "info"
	DefaultOutput   = "auto" // terminal: text, otherwise markdown
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "batonlint.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "batonlint.yml"

// defaults is loaded into koanf before any other source.
func defaults() map[string]any {
	return map[string]any{
		"parser":           sqlast.DefaultBackend,
		"debounce":         DefaultDebounce.String(),
		"log_level":        DefaultLogLevel,
		"output":           DefaultOutput,
		"discovery.fields": discovery.DefaultFields,
	}
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Parser:    sqlast.DefaultBackend,
		Debounce:  DefaultDebounce,
		LogLevel:  DefaultLogLevel,
		Output:    DefaultOutput,
		Discovery: DiscoveryConfig{Fields: append([]string(nil), discovery.DefaultFields...)},
	}
}
