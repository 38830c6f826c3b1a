/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: optional.go
Description: Optional value wrapper for slicer settings that may or may not be declared
in a file. Absent values encode as null rather than a sentinel number.
*/

package metadata

import "encoding/json"

// Optional holds a value that may be absent
type Optional[T any] struct {
	value   T
	present bool
}

// Some returns a present value
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None returns an absent value
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// Present reports whether a value is held
func (o Optional[T]) Present() bool {
	return o.present
}

// OrElse returns the value or the fallback when absent
func (o Optional[T]) OrElse(fallback T) T {
	if o.present {
		return o.value
	}
	return fallback
}

// MarshalJSON encodes the value, or null when absent
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes a value; null leaves it absent
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// MarshalYAML encodes the value, or null when absent
func (o Optional[T]) MarshalYAML() (interface{}, error) {
	if !o.present {
		return nil, nil
	}
	return o.value, nil
}
