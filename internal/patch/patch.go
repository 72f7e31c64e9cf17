// Package patch models partial updates: each field is either absent or
// present with a value, and a present JSON null is distinct from absence.
package patch

import "encoding/json"

type Field[T any] struct {
	Value T
	Set   bool
}

// Some returns a present field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		var zero T
		f.Value = zero
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Apply copies a present value into dst and reports whether it did.
func Apply[T any](dst *T, f Field[T]) bool {
	if !f.Set {
		return false
	}
	*dst = f.Value
	return true
}
