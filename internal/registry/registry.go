package registry

import (
	"fmt"
	"iter"

	"MacroPull/internal/domain/models"
)

// UnknownIndicatorError is returned by Resolve for unregistered names.
type UnknownIndicatorError struct {
	Name string
}

func (e *UnknownIndicatorError) Error() string {
	return fmt.Sprintf("unknown indicator %q", e.Name)
}

// Registry is the immutable, registered-at-startup indicator catalog.
// Iteration order is registration order, which downstream reports rely on.
// Reads are safe for concurrent use because nothing mutates after New.
type Registry struct {
	specs  []models.IndicatorSpec
	byName map[string]models.IndicatorSpec
}

func New(specs ...models.IndicatorSpec) (*Registry, error) {
	r := &Registry{
		specs:  make([]models.IndicatorSpec, 0, len(specs)),
		byName: make(map[string]models.IndicatorSpec, len(specs)),
	}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("indicator spec with empty name")
		}
		if _, dup := r.byName[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate indicator %q", spec.Name)
		}
		r.byName[spec.Name] = spec
		r.specs = append(r.specs, spec)
	}
	return r, nil
}

// Resolve returns the spec registered under name.
func (r *Registry) Resolve(name string) (models.IndicatorSpec, error) {
	spec, ok := r.byName[name]
	if !ok {
		return models.IndicatorSpec{}, &UnknownIndicatorError{Name: name}
	}
	return spec, nil
}

// All yields every spec in registration order. The sequence is finite and
// restartable.
func (r *Registry) All() iter.Seq[models.IndicatorSpec] {
	return func(yield func(models.IndicatorSpec) bool) {
		for _, spec := range r.specs {
			if !yield(spec) {
				return
			}
		}
	}
}

// Len returns the number of registered specs.
func (r *Registry) Len() int { return len(r.specs) }

// EDBSpec builds a quota-limited spec backed by the economic database.
func EDBSpec(name, id, unit, category string) models.IndicatorSpec {
	return models.IndicatorSpec{
		Name:       name,
		Source:     models.SourceEDB,
		SourceID:   id,
		Unit:       unit,
		Category:   category,
		QuotaClass: models.QuotaLimited,
	}
}

// FuturesSpec builds an unlimited spec backed by futures quote history.
func FuturesSpec(name, code, unit, category string) models.IndicatorSpec {
	return models.IndicatorSpec{
		Name:       name,
		Source:     models.SourceFuturesQuote,
		SourceID:   code,
		Unit:       unit,
		Category:   category,
		QuotaClass: models.QuotaUnlimited,
	}
}

// Default is the nickel research catalog: the two EDB macro drivers plus the
// SHFE nickel continuous contract as the domestic pricing benchmark.
func Default() *Registry {
	r, err := New(
		EDBSpec("lme_nickel_inventory", "S004303610", "ton", "inventory"),
		EDBSpec("us_dollar_index", "G002600885", "point", "macro"),
		FuturesSpec("shfe_nickel_continuous", "NI00.SHF", "CNY/ton", "price"),
	)
	if err != nil {
		// static catalog, unreachable unless the table above is edited badly
		panic(err)
	}
	return r
}
