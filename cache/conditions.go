package cache

// Conditions distinguish one cached variant of a fragment from another
// (locale, page number, user segment...). Values may be scalars, nested
// maps or slices; they must be JSON-serializable.
//
// Conditions are treated as immutable for the duration of a call.
type Conditions map[string]any

// Clone returns a shallow copy of c. Nested maps and slices are shared.
func (c Conditions) Clone() Conditions {
	out := make(Conditions, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Get returns the value stored under name.
func (c Conditions) Get(name string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c[name]
	return v, ok
}
