// Package rules holds the Spring to Quarkus migration rules and the
// registry the runner picks them from.
package rules

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/oxhq/quarkmig/internal/lang/java"
	"github.com/oxhq/quarkmig/internal/recipe"
)

var (
	ErrUnknownRule   = errors.New("unknown rule")
	ErrDuplicateRule = errors.New("rule already registered")
)

// Registry keeps rules in registration order. It is safe for concurrent
// use.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]recipe.Rule // lower-cased name -> rule
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]recipe.Rule)}
}

// Register appends rule to the registry. Names are case insensitive.
func (r *Registry) Register(rule recipe.Rule) error {
	if rule == nil || reflect.ValueOf(rule).Kind() == reflect.Pointer && reflect.ValueOf(rule).IsNil() {
		return fmt.Errorf("rule cannot be nil")
	}
	name := rule.Name()
	if name == "" {
		return fmt.Errorf("rule must have a non-empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	if _, exists := r.rules[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, name)
	}
	r.rules[key] = rule
	r.order = append(r.order, key)
	return nil
}

// Get looks a rule up by name.
func (r *Registry) Get(name string) (recipe.Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[strings.ToLower(strings.TrimSpace(name))]
	return rule, ok
}

// List returns every rule in registration order.
func (r *Registry) List() []recipe.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]recipe.Rule, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.rules[key])
	}
	return out
}

// Select returns the named rules in registration order, whatever order the
// names come in. No names selects every rule.
func (r *Registry) Select(names []string) ([]recipe.Rule, error) {
	if len(names) == 0 {
		return r.List(), nil
	}
	want := make(map[string]bool, len(names))
	var unknown []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := r.Get(name); !ok {
			unknown = append(unknown, name)
			continue
		}
		want[strings.ToLower(name)] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, strings.Join(unknown, ", "))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []recipe.Rule
	for _, key := range r.order {
		if want[key] {
			out = append(out, r.rules[key])
		}
	}
	return out, nil
}

// Builtin registers the catalog's rules in the order they must run. jp
// parses the rules' Java fragments and should resolve against
// cat.NewClasspath().
func Builtin(cat *Catalog, jp *java.Parser) (*Registry, error) {
	r := NewRegistry()
	all := []recipe.Rule{
		NewEnableAnnotationsToDependencies(cat),
		NewSpringWebToJaxRs(cat, jp),
		NewResponseEntityToJaxRsResponse(cat, jp),
		NewSpringValueToConfigProperty(jp),
		NewSpringApplicationRunToQuarkusRun(jp),
		NewRemoveSpringBootApplication(),
		NewEventListenerToObserves(jp),
		NewSpringBeanToCdiProduces(jp),
		NewStereotypesToCdi(cat, jp),
		NewJpaEntityToPanacheEntity(),
		NewSpringHealthIndicatorToQuarkus(jp),
		NewRemoveSpringBootParent(),
		NewAddQuarkusMavenPlugin(),
	}
	for _, rule := range all {
		if err := r.Register(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}
