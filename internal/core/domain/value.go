package domain

import (
	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// ErasedValue is a type-erased, already-decoded value extracted from a scene
// file: a command payload or a scene node loadable. Values are compared by
// content hash so that re-submitting an identical value is a cheap no-op.
type ErasedValue struct {
	// Type is the registered loadable type name used for dispatch.
	Type InternedString
	// Payload is the decoded value, handed as-is to apply callbacks.
	Payload any

	hash uint64
}

// NewErasedValue builds an ErasedValue, hashing the canonical serialization
// of the payload. yaml.v3 sorts map keys on encode, so the hash is stable
// across decode/re-decode cycles of the same content.
func NewErasedValue(typeName string, payload any) (ErasedValue, error) {
	canonical, err := yaml.Marshal(payload)
	if err != nil {
		return ErasedValue{}, zerr.With(
			zerr.Wrap(err, ErrValueNotHashable.Error()),
			"type", typeName,
		)
	}
	return ErasedValue{
		Type:    NewInternedString(typeName),
		Payload: payload,
		hash:    xxhash.Sum64(canonical),
	}, nil
}

// Equals reports whether two values have the same type and content hash.
func (v ErasedValue) Equals(o ErasedValue) bool {
	return v.Type == o.Type && v.hash == o.hash
}

// Hash exposes the content hash, mainly for logging and tests.
func (v ErasedValue) Hash() uint64 {
	return v.hash
}
