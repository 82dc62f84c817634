package config

import (
	"fmt"

	"github.com/ragline/ragline/internal/domain"
)

// Extractor pulls indexable text out of one raw source item. Used for
// content types whose text lives outside the regular field set.
type Extractor func(raw map[string]any) string

// Rule is the extraction strategy registered for one content type:
// either a field list (empty = default extraction) or a custom function.
type Rule struct {
	Fields    []string
	Extractor Extractor
}

// Custom reports whether the rule carries a custom extractor.
func (r Rule) Custom() bool { return r.Extractor != nil }

// Registry maps content-type names to extraction rules. A type with no
// registration is not indexed at all.
type Registry struct {
	rules map[string]Rule
	order []string
}

// NewRegistry creates an empty content-type registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register adds or replaces the rule for typeName. fields may be nil,
// meaning "use default extraction"; extractor (if non-nil) wins over fields.
func (r *Registry) Register(typeName string, fields []string, extractor Extractor) {
	if _, seen := r.rules[typeName]; !seen {
		r.order = append(r.order, typeName)
	}
	r.rules[typeName] = Rule{Fields: fields, Extractor: extractor}
}

// Rule returns the registered rule for typeName, or ErrNotRegistered.
func (r *Registry) Rule(typeName string) (Rule, error) {
	rule, ok := r.rules[typeName]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q", domain.ErrNotRegistered, typeName)
	}
	return rule, nil
}

// Types returns registered type names in registration order. Deterministic
// ordering keeps indexing runs reproducible.
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
