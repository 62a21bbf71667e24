package lint

// Config controls which rules are enabled, their severity and options.
type Config struct {
	// DisabledRules contains rule names to skip
	DisabledRules map[string]bool

	// SeverityOverrides changes the default severity of rules
	SeverityOverrides map[string]Severity

	// RuleOptions holds per-rule options keyed by rule name
	RuleOptions map[string]map[string]any
}

// NewConfig creates a default configuration with all rules enabled.
func NewConfig() *Config {
	return &Config{
		DisabledRules:     make(map[string]bool),
		SeverityOverrides: make(map[string]Severity),
		RuleOptions:       make(map[string]map[string]any),
	}
}

// IsDisabled returns true if the rule should be skipped.
func (c *Config) IsDisabled(name string) bool {
	if c == nil {
		return false
	}
	return c.DisabledRules[name]
}

// GetSeverity returns the severity for a rule, applying any override.
func (c *Config) GetSeverity(name string, defaultSeverity Severity) Severity {
	if c != nil {
		if sev, ok := c.SeverityOverrides[name]; ok {
			return sev
		}
	}
	return defaultSeverity
}

// GetRuleOptions returns the options configured for a rule, or nil.
func (c *Config) GetRuleOptions(name string) map[string]any {
	if c == nil {
		return nil
	}
	return c.RuleOptions[name]
}

// Disable disables a rule by name.
func (c *Config) Disable(name string) *Config {
	c.DisabledRules[name] = true
	return c
}

// SetSeverity overrides the severity for a rule.
func (c *Config) SetSeverity(name string, severity Severity) *Config {
	c.SeverityOverrides[name] = severity
	return c
}

// SetRuleOptions sets options for a rule.
func (c *Config) SetRuleOptions(name string, opts map[string]any) *Config {
	c.RuleOptions[name] = opts
	return c
}
