package sqlparse

import "strings"

// InProgressSet tracks the schema-qualified view keys currently being
// resolved. It makes re-entrant view resolution cycle-safe without
// global state: each resolution chain carries its own set.
type InProgressSet map[string]struct{}

// NewInProgressSet returns an empty set.
func NewInProgressSet() InProgressSet {
	return make(InProgressSet)
}

// Mark records key as in-flight and returns a release func. Defer the
// release so the marker cannot leak on any exit path.
func (s InProgressSet) Mark(key string) func() {
	s[key] = struct{}{}
	return func() { delete(s, key) }
}

// Contains reports whether key is currently in-flight.
func (s InProgressSet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// ViewKey normalizes a schema-qualified view name for cycle tracking.
func ViewKey(schema, name string) string {
	return strings.ToLower(schema) + "." + strings.ToLower(name)
}

// FilterSafeReferences drops candidate references that would close a
// cycle: direct self-references and references to any in-flight view
// of the current resolution chain. Surviving references keep their
// input order. The function reads but never mutates inProgress.
func (p *Parser) FilterSafeReferences(viewKey string, refs []TableRef, defaultSchema string, inProgress InProgressSet) []TableRef {
	safe := make([]TableRef, 0, len(refs))
	for _, ref := range refs {
		key := ref.Key(defaultSchema)
		if key == viewKey || inProgress.Contains(key) {
			p.logger.Warn("circular view reference dropped",
				"view", viewKey,
				"reference", key)
			continue
		}
		safe = append(safe, ref)
	}
	return safe
}
