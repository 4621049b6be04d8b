package listing

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes a field the caller left out from one it supplied,
// including one supplied as an empty value or null.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a supplied Optional holding v
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// UnmarshalJSON is only invoked for keys present in the document,
// so reaching it means the field was supplied.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
