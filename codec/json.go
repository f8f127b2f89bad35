package codec

import (
	"encoding/json"
	"fmt"

	"github.com/gauss-project/gauss/schema"
	"github.com/gauss-project/gauss/value"
	"github.com/gauss-project/gauss/xerrors"
)

// JSONCodec decodes newline-framed JSON objects into a Row whose field
// order and types follow a fixed Schema declared at construction — the
// "flat codec uses plain names" case from §4.2. Top-level JSON keys not
// named in the schema are ignored; a named key absent from the payload
// decodes to a null Value.
type JSONCodec struct {
	schema schema.Schema
}

// NewJSONCodec builds a JSONCodec bound to sch. sch's field names are
// treated as flat top-level JSON object keys.
func NewJSONCodec(sch schema.Schema) *JSONCodec {
	return &JSONCodec{schema: sch}
}

func (c *JSONCodec) Schema() (schema.Schema, bool) { return c.schema, true }

func (c *JSONCodec) Deserialize(frame []byte) (value.Row, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(frame, &obj); err != nil {
		return value.Row{}, xerrors.Encoding(fmt.Errorf("%w: %v", xerrors.ErrMalformedFrame, err), "codec.JSONCodec", "Deserialize")
	}

	values := make([]value.Value, len(c.schema.Fields))
	for i, f := range c.schema.Fields {
		raw, ok := obj[f.Name]
		if !ok {
			values[i] = value.Null()
			continue
		}
		v, err := decodeJSONValue(raw, f.Type.Name)
		if err != nil {
			return value.Row{}, xerrors.Encoding(fmt.Errorf("%w: field %q: %v", xerrors.ErrMalformedFrame, f.Name, err), "codec.JSONCodec", "Deserialize")
		}
		values[i] = v
	}
	return value.Row{Values: values}, nil
}

func (c *JSONCodec) Serialize(row value.Row) ([]byte, error) {
	if row.Len() != len(c.schema.Fields) {
		return nil, xerrors.Encoding(fmt.Errorf("%w: row has %d values, schema has %d fields", xerrors.ErrInvalidValue, row.Len(), len(c.schema.Fields)), "codec.JSONCodec", "Serialize")
	}
	kinds := map[string]value.Kind{
		"int64": value.KindInt64, "int32": value.KindInt64,
		"uint64": value.KindUint64, "uint32": value.KindUint64,
		"float32": value.KindFloat32, "bool": value.KindBool,
		"bytes": value.KindBytes, "string": value.KindString, "": value.KindString,
	}
	obj := make(map[string]any, len(c.schema.Fields))
	for i, f := range c.schema.Fields {
		v := row.At(i)
		if v.IsNull() {
			obj[f.Name] = nil
			continue
		}
		if want, typed := kinds[f.Type.Name]; typed && v.Kind != want {
			return nil, xerrors.Encoding(fmt.Errorf("%w: field %q: value kind %s does not match field type %q", xerrors.ErrInvalidValue, f.Name, v.Kind, f.Type.Name), "codec.JSONCodec", "Serialize")
		}
		enc, err := encodeJSONValue(v)
		if err != nil {
			return nil, xerrors.Encoding(fmt.Errorf("%w: field %q: %v", xerrors.ErrInvalidValue, f.Name, err), "codec.JSONCodec", "Serialize")
		}
		obj[f.Name] = enc
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return nil, xerrors.Encoding(fmt.Errorf("%w: %v", xerrors.ErrInvalidValue, err), "codec.JSONCodec", "Serialize")
	}
	return out, nil
}

func decodeJSONValue(raw json.RawMessage, typeName string) (value.Value, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return value.Value{}, err
	}
	if generic == nil {
		return value.Null(), nil
	}
	switch typeName {
	case "int64", "int32":
		n, ok := generic.(float64)
		if !ok {
			return value.Value{}, fmt.Errorf("expected number, got %T", generic)
		}
		return value.Int64(int64(n)), nil
	case "uint64", "uint32":
		n, ok := generic.(float64)
		if !ok {
			return value.Value{}, fmt.Errorf("expected number, got %T", generic)
		}
		return value.Uint64(uint64(n)), nil
	case "float32":
		n, ok := generic.(float64)
		if !ok {
			return value.Value{}, fmt.Errorf("expected number, got %T", generic)
		}
		return value.Float32(float32(n)), nil
	case "bool":
		b, ok := generic.(bool)
		if !ok {
			return value.Value{}, fmt.Errorf("expected bool, got %T", generic)
		}
		return value.Bool(b), nil
	case "bytes":
		s, ok := generic.(string)
		if !ok {
			return value.Value{}, fmt.Errorf("expected base64 string, got %T", generic)
		}
		return value.Bytes([]byte(s)), nil
	case "string", "":
		s, ok := generic.(string)
		if !ok {
			return value.Value{}, fmt.Errorf("expected string, got %T", generic)
		}
		return value.String([]byte(s)), nil
	default:
		// float64, double, and unrecognized type names fall through to a
		// best-effort numeric/string decode rather than rejecting the frame.
		switch g := generic.(type) {
		case float64:
			return value.Float64(g), nil
		case string:
			return value.String([]byte(g)), nil
		case bool:
			return value.Bool(g), nil
		default:
			return value.Value{}, fmt.Errorf("unsupported JSON value of type %T for field type %q", generic, typeName)
		}
	}
}

func encodeJSONValue(v value.Value) (any, error) {
	switch v.Kind {
	case value.KindInt64:
		return v.I64, nil
	case value.KindUint64:
		return v.U64, nil
	case value.KindFloat32:
		return v.F32, nil
	case value.KindFloat64:
		return v.F64, nil
	case value.KindBool:
		return v.B, nil
	case value.KindString:
		return string(v.Str), nil
	case value.KindBytes:
		return string(v.Bin), nil
	case value.KindTimestamp:
		return v.Ts.Micros, nil
	case value.KindDecimal:
		return v.CanonicalText(), nil
	case value.KindArray:
		out := make([]any, len(v.Arr))
		for i, e := range v.Arr {
			enc, err := encodeJSONValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case value.KindMap:
		out := make(map[string]any, len(v.Map))
		for _, p := range v.Map {
			enc, err := encodeJSONValue(p.Val)
			if err != nil {
				return nil, err
			}
			out[p.Key.CanonicalText()] = enc
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %s", v.Kind)
	}
}
