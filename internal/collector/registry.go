package collector

import "sort"

// Registry maps a source-type tag to the fetcher implementing it. It is
// built once at startup and immutable afterwards, so concurrent lookups need
// no locking. Lookups are pure; all side effects live in the fetchers.
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry copies the given mapping into an immutable registry.
func NewRegistry(fetchers map[string]Fetcher) *Registry {
	m := make(map[string]Fetcher, len(fetchers))
	for name, f := range fetchers {
		m[name] = f
	}
	return &Registry{fetchers: m}
}

// Lookup returns the fetcher registered for the source type.
func (r *Registry) Lookup(sourceType string) (Fetcher, bool) {
	f, ok := r.fetchers[sourceType]
	return f, ok
}

// Types returns the registered source-type tags, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.fetchers))
	for name := range r.fetchers {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}
