// Package codec implements the Format Codec contract (C3): translating
// between a topic's opaque bytes and the positional Row model, plus the
// source Schema a mapping resolver binds field() calls against. Grounded on
// original_source/libs/gauss-api/src/format.rs (FormatSerializer) and
// storage.rs's StorageContext carrying an optional serializer.
package codec

import (
	"github.com/gauss-project/gauss/schema"
	"github.com/gauss-project/gauss/value"
)

// Codec is stateless beyond its schema/config captured at construction.
// Deserialize may borrow bytes for any string/bytes Values it produces;
// Serialize must return an owned buffer.
type Codec interface {
	// Deserialize decodes one frame into a Row whose length and positional
	// correspondence matches Schema().Fields. Returns a wrapped
	// xerrors.ErrMalformedFrame on failure.
	Deserialize(frame []byte) (value.Row, error)

	// Serialize encodes a Row back into a frame. Returns a wrapped
	// xerrors.ErrInvalidValue if a value's runtime kind disagrees with the
	// field type the codec expects at that position.
	Serialize(row value.Row) ([]byte, error)

	// Schema returns the source schema, or the zero Schema with ok=false
	// for schema-less codecs (e.g. raw passthrough).
	Schema() (schema.Schema, bool)
}

// Factory constructs a Codec from a kind name and declarative config.
type Factory func(config map[string]any) (Codec, error)
