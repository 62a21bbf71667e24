package lint

import "sync"

// globalRegistry holds every registered rule in registration order.
var globalRegistry = &Registry{
	rules: make(map[string]RuleDef),
}

// Registry stores rules by name and remembers registration order, which is
// also execution order.
type Registry struct {
	mu    sync.RWMutex
	order []string
	rules map[string]RuleDef
}

// Register adds a rule to the global registry. Registering a name twice
// replaces the earlier definition in place.
// Call this from init() functions in rule packages.
func Register(rules ...RuleDef) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	for _, rule := range rules {
		if _, exists := globalRegistry.rules[rule.Name]; !exists {
			globalRegistry.order = append(globalRegistry.order, rule.Name)
		}
		globalRegistry.rules[rule.Name] = rule
	}
}

// GetAll returns all registered rules in execution order.
func GetAll() []RuleDef {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	rules := make([]RuleDef, 0, len(globalRegistry.order))
	for _, name := range globalRegistry.order {
		rules = append(rules, globalRegistry.rules[name])
	}
	return rules
}

// GetByName returns a rule by its name.
func GetByName(name string) (RuleDef, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	rule, ok := globalRegistry.rules[name]
	return rule, ok
}

// GetByGroup returns all rules in a group, in execution order.
func GetByGroup(group string) []RuleDef {
	var rules []RuleDef
	for _, rule := range GetAll() {
		if rule.Group == group {
			rules = append(rules, rule)
		}
	}
	return rules
}

// Count returns the number of registered rules.
func Count() int {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return len(globalRegistry.order)
}
