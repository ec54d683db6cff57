// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &reg, nil
}

func (r *ActivityRegistry) Lookup(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Check reports task types that are registered with the broker but missing
// from the catalogue, catalogue entries nobody serves, duplicates and
// unparsable timeouts.
func (r *ActivityRegistry) Check(registered []string) error {
	var problems []string

	seen := map[string]bool{}
	for _, a := range r.Activities {
		if seen[a.TaskType] {
			problems = append(problems, "duplicate task type "+a.TaskType)
		}
		seen[a.TaskType] = true
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				problems = append(problems, fmt.Sprintf("%s: bad timeout %q", a.TaskType, a.Timeout))
			}
		}
	}

	served := map[string]bool{}
	for _, t := range registered {
		served[t] = true
		if !seen[t] {
			problems = append(problems, "undeclared task type "+t)
		}
	}
	for t := range seen {
		if !served[t] {
			problems = append(problems, "no worker for "+t)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("activity registry: %s", strings.Join(problems, "; "))
}
