// Package config loads batonlint project configuration from defaults, a
// batonlint.yaml file, BATONLINT_ environment variables and command flags.
package config

import (
	"time"

	"github.com/leapstack-labs/batonlint/pkg/lint"
)

// Config holds all batonlint settings.
type Config struct {
	Parser    string          `koanf:"parser"`
	Debounce  time.Duration   `koanf:"debounce"`
	LogLevel  string          `koanf:"log_level"`
	Output    string          `koanf:"output"`
	Lint      LintConfig      `koanf:"lint"`
	Discovery DiscoveryConfig `koanf:"discovery"`

	// File is the config file that was loaded, empty when none was found.
	File string `koanf:"-"`
}

// LintConfig configures the rule engine.
type LintConfig struct {
	Disabled []string                  `koanf:"disabled"`
	Severity map[string]lint.Severity  `koanf:"severity"`
	Rules    map[string]map[string]any `koanf:"rules"`
}

// DiscoveryConfig configures how queries are found in YAML documents.
type DiscoveryConfig struct {
	Fields []string `koanf:"fields"`
}

// ToLintConfig converts the lint section into an engine configuration.
func (c *Config) ToLintConfig() *lint.Config {
	lc := lint.NewConfig()
	for _, name := range c.Lint.Disabled {
		lc.Disable(name)
	}
	for name, sev := range c.Lint.Severity {
		lc.SetSeverity(name, sev)
	}
	for name, opts := range c.Lint.Rules {
		lc.SetRuleOptions(name, opts)
	}
	return lc
}
