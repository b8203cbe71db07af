package backoffice

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ref is a reference the backend sends either as a bare id string or as the
// populated document. Doc is nil when only the id was sent.
type Ref[T any] struct {
	ID  string
	Doc *T
}

// RefTo builds an id-only reference.
func RefTo[T any](id string) Ref[T] { return Ref[T]{ID: id} }

// UnmarshalJSON accepts null, "id" or {"_id": "id", ...}.
func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref[T]{}
		return nil
	}
	switch data[0] {
	case '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref[T]{ID: id}
		return nil
	case '{':
		var head struct {
			ID string `json:"_id"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return err
		}
		var doc T
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		*r = Ref[T]{ID: head.ID, Doc: &doc}
		return nil
	default:
		return fmt.Errorf("backoffice: reference must be an id or object, got %q", data[:1])
	}
}

// MarshalJSON writes the populated document when present, else the id.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.Doc != nil {
		return json.Marshal(r.Doc)
	}
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// Populated reports whether the backend sent the full document.
func (r Ref[T]) Populated() bool { return r.Doc != nil }
