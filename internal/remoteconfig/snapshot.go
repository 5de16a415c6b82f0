package remoteconfig

import (
	"fmt"
	"maps"

	"dario.cat/mergo"
)

// Snapshot is an immutable point-in-time mapping of keys to raw string values.
type Snapshot struct {
	values map[Key]string
}

// NewSnapshot copies values into a new Snapshot. Keys outside the known set
// are dropped.
func NewSnapshot(values map[Key]string) Snapshot {
	out := make(map[Key]string, len(values))
	for key, value := range values {
		if key.Valid() {
			out[key] = value
		}
	}
	return Snapshot{values: out}
}

// Get returns the raw value stored for key.
func (s Snapshot) Get(key Key) (string, bool) {
	value, ok := s.values[key]
	return value, ok
}

// Len returns the number of keys present in the snapshot.
func (s Snapshot) Len() int {
	return len(s.values)
}

// Values returns a copy of the underlying mapping.
func (s Snapshot) Values() map[Key]string {
	return maps.Clone(s.values)
}

// WireValues returns a copy of the mapping keyed by wire names.
func (s Snapshot) WireValues() map[string]string {
	out := make(map[string]string, len(s.values))
	for key, value := range s.values {
		out[key.String()] = value
	}
	return out
}

// Equal reports whether both snapshots hold the same keys and values.
func (s Snapshot) Equal(other Snapshot) bool {
	return maps.Equal(s.values, other.values)
}

// Merge returns defaults overridden by fetched. Keys missing from fetched fall
// through to defaults.
func Merge(defaults, fetched Snapshot) (Snapshot, error) {
	merged := maps.Clone(defaults.values)
	if merged == nil {
		merged = make(map[Key]string, len(fetched.values))
	}
	if len(fetched.values) == 0 {
		return Snapshot{values: merged}, nil
	}

	if err := mergo.Merge(&merged, maps.Clone(fetched.values), mergo.WithOverride); err != nil {
		return Snapshot{}, fmt.Errorf("merge fetched values: %w", err)
	}
	return Snapshot{values: merged}, nil
}
