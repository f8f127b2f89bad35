// Package schema implements the free-form structured-data-type description
// shared by format codecs (source schema), storages (target schema), and
// storage introspection (existing-storage schema). Field position is the
// only identity carried at runtime — names exist for the mapping resolver
// and for observability only.
package schema

// FieldType is a (name, attribute map) pair. Name and attribute keys are
// free-form strings; the engine assigns them no meaning. A format codec
// interprets them as source types ("int32", "DateTime64"); a storage
// interprets them as target types ("Decimal", {precision,scale}).
type FieldType struct {
	Name  string
	Attrs map[string]any
}

// Field is one entry in a Schema's field list.
//
// For flat formats (protobuf, Arrow) Name is a field name ("symbol", "bid").
// For hierarchical formats (JSON) Name may be a JSONPath-like access path
// ("$.order.id").
type Field struct {
	Name      string
	Type      FieldType
	Properties map[string]any // target: default/materialized/codec; source: usually empty
}

// Schema is an ordered field list plus schema-level attributes. The same
// structure serves as source schema (from a format codec), target schema
// (for a storage's DDL), or existing-storage schema (from introspection).
type Schema struct {
	Fields []Field
	Attrs  map[string]any // source: package/message metadata; target: table/engine/order_by
}

// IndexOf returns the position of the field named name, or -1 if absent.
func (s Schema) IndexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether a field named name exists in the schema.
func (s Schema) Has(name string) bool {
	return s.IndexOf(name) >= 0
}

// Clone returns a schema whose Fields slice and attribute maps are
// independent of the receiver's.
func (s Schema) Clone() Schema {
	fields := make([]Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = Field{
			Name:       f.Name,
			Type:       FieldType{Name: f.Type.Name, Attrs: cloneMap(f.Type.Attrs)},
			Properties: cloneMap(f.Properties),
		}
	}
	return Schema{Fields: fields, Attrs: cloneMap(s.Attrs)}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
