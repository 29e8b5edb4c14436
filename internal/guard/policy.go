package guard

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RoutePolicy maps a path prefix to its access rule. The longest matching
// prefix wins; routes without a policy default to authenticated-only.
type RoutePolicy struct {
	Prefix string   `yaml:"prefix"`
	Public bool     `yaml:"public,omitempty"`
	Roles  []string `yaml:"roles,omitempty"`
}

type policyFile struct {
	Routes []RoutePolicy `yaml:"routes"`
}

// DefaultPolicies covers the shell's own routes when no policy file is given.
func DefaultPolicies() []RoutePolicy {
	return []RoutePolicy{
		{Prefix: "/healthcheck", Public: true},
		{Prefix: "/sign-in", Public: true},
		{Prefix: "/admin", Roles: []string{"admin"}},
	}
}

func LoadPolicies(path string) ([]RoutePolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route policy file: %w", err)
	}
	var pf policyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse route policy file: %w", err)
	}
	for i := range pf.Routes {
		pf.Routes[i].Prefix = strings.TrimSpace(pf.Routes[i].Prefix)
		if pf.Routes[i].Prefix == "" || !strings.HasPrefix(pf.Routes[i].Prefix, "/") {
			return nil, fmt.Errorf("route policy %d: prefix must start with /", i)
		}
	}
	return pf.Routes, nil
}
