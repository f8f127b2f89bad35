// Package mapping implements the Schema-Mapping Resolver (C5): it compiles
// a source schema, a sandboxed mapping script, and the field-converter
// registry into a MapSchema — the per-(format,storage) resolved execution
// plan consumed on the record hot path. Grounded on
// original_source/libs/gauss-api/src/mapping.rs for the FieldMap/MapSchema
// shapes.
package mapping

import (
	"github.com/gauss-project/gauss/schema"
)

// ConverterKind classifies how a FieldMap's value is produced.
type ConverterKind int

const (
	// Passthrough copies the source value unchanged (the zero value, so an
	// unspecified converter name resolves here per §4.4 step 1).
	Passthrough ConverterKind = iota
	// Plugin applies a named converter.FieldConverter looked up in the registry.
	Plugin
	// Excluded drops the source field; it contributes no target column.
	Excluded
	// Computed is a target-only column with no source reference: the
	// storage materializes it (default value or DB-side expression).
	Computed
)

func (k ConverterKind) String() string {
	switch k {
	case Passthrough:
		return "passthrough"
	case Plugin:
		return "plugin"
	case Excluded:
		return "excluded"
	case Computed:
		return "computed"
	default:
		return "unknown"
	}
}

// FieldRef names a field by its position in the preserved source schema.
// Index is authoritative at runtime; Name is carried for diagnostics only.
type FieldRef struct {
	Index int
	Name  string
}

// FieldMap is the resolved binding for one output column. Exactly one of
// Source/Target may be absent (nil), per the quadruple invariant in §3.5:
// Source+Target present → passthrough/plugin; Source only → excluded;
// Target only → computed.
type FieldMap struct {
	Source        *FieldRef
	Target        *schema.Field
	Converter     ConverterKind
	ConverterName string // resolved plugin name, empty unless Converter == Plugin
}

// MapSchema is the resolved artifact of the mapping step: the preserved
// source schema, the final target schema, and the ordered FieldMap list in
// the order the mapping script declared them.
type MapSchema struct {
	Source schema.Schema
	Target schema.Schema
	Fields []FieldMap
}
