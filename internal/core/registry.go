package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/schemamap/internal/mapping"
)

// compiledPlan is a registered plan together with its mapping.
type compiledPlan struct {
	plan    Plan
	mapping mapping.Mapping
}

var (
	registry   = make(map[string]compiledPlan)
	registryMu sync.RWMutex
)

// Register compiles a plan and adds it to the registry.
// Returns an error if the plan is invalid or the name is already taken.
func Register(p Plan) error {
	m, err := Compile(p)
	if err != nil {
		return err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[p.Name]; exists {
		return fmt.Errorf("%w: plan already registered: %s", ErrInvalidPlan, p.Name)
	}
	registry[p.Name] = compiledPlan{plan: p, mapping: m}
	return nil
}

// MustRegister is like Register but panics on error.
// Intended for plans defined in code at init time.
func MustRegister(p Plan) {
	if err := Register(p); err != nil {
		panic(err)
	}
}

// Get returns a registered plan by name.
// Returns false if not found.
func Get(name string) (Plan, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	cp, ok := registry[name]
	return cp.plan, ok
}

// lookup returns the compiled mapping of a registered plan.
func lookup(name string) (compiledPlan, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	cp, ok := registry[name]
	return cp, ok
}

// All returns all registered plans sorted by name.
func All() []Plan {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Plan, 0, len(registry))
	for _, cp := range registry {
		result = append(result, cp.plan)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// PlanCount returns the number of registered plans.
func PlanCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Unregister removes a plan. Returns false if it was not registered.
func Unregister(name string) bool {
	registryMu.Lock()
	defer registryMu.Unlock()

	_, ok := registry[name]
	delete(registry, name)
	return ok
}

// Clear removes all registered plans.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]compiledPlan)
}
