// Package value implements Gauss's canonical typed-value representation:
// Value, the tagged union every format codec decodes into, and Row, the
// positional vector of Value that flows through the data-pipeline executor.
//
// Strategy by kind mirrors the reference engine: scalars (Int64, Float64,
// Bool) are eagerly parsed at near-zero cost; Decimal and Timestamp are
// eagerly parsed because their binary layout is incompatible between wire
// formats; String and Bytes borrow from the source buffer when possible;
// Array/Map/Tuple are recursive and always eager.
package value

import "fmt"

// Kind tags which variant of Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindBool
	KindDecimal
	KindTimestamp
	KindString
	KindBytes
	KindArray
	KindMap
	KindTuple
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindDecimal:
		return "decimal"
	case KindTimestamp:
		return "timestamp"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindTuple:
		return "tuple"
	default:
		return "unknown"
	}
}

// Decimal is a fixed-point value: an unscaled 128-bit two's-complement
// integer (big-endian byte layout, since Go has no native int128) plus a
// scale byte. bytes[0] is the most significant byte.
type Decimal struct {
	Unscaled [16]byte
	Scale    uint8
}

// Timestamp is microseconds since the Unix epoch plus a precision byte
// (the number of significant sub-second digits the source format declared;
// purely informational — the engine always stores full microsecond
// resolution).
type Timestamp struct {
	Micros    int64
	Precision uint8
}

// Pair is one (key, value) entry of a Map value.
type Pair struct {
	Key Value
	Val Value
}

// Value is Gauss's tagged union. Only the field matching Kind is valid.
//
// Str and Bin hold a borrow-or-own byte slice: when a Value is produced by
// Format.Deserialize, the slice may alias the TopicRecord's data buffer
// directly (zero-copy) — callers must not retain a Value derived this way
// beyond the scope that pins the owning record (see the data-pipeline
// executor's borrow discipline).
type Value struct {
	Kind Kind

	I64 int64
	U64 uint64
	F32 float32
	F64 float64
	B   bool
	Dec Decimal
	Ts  Timestamp
	Str []byte // KindString: text, may borrow
	Bin []byte // KindBytes: opaque binary, may borrow
	Arr []Value
	Map []Pair
	Tup []Value
}

func Null() Value                      { return Value{Kind: KindNull} }
func Int64(v int64) Value              { return Value{Kind: KindInt64, I64: v} }
func Uint64(v uint64) Value            { return Value{Kind: KindUint64, U64: v} }
func Float32(v float32) Value          { return Value{Kind: KindFloat32, F32: v} }
func Float64(v float64) Value          { return Value{Kind: KindFloat64, F64: v} }
func Bool(v bool) Value                { return Value{Kind: KindBool, B: v} }
func DecimalValue(d Decimal) Value     { return Value{Kind: KindDecimal, Dec: d} }
func TimestampValue(t Timestamp) Value { return Value{Kind: KindTimestamp, Ts: t} }

// String wraps a byte slice as a text value. The slice is not copied: if it
// aliases a TopicRecord's data, the resulting Value inherits that borrow.
func String(s []byte) Value { return Value{Kind: KindString, Str: s} }

// Bytes wraps a byte slice as an opaque-binary value, same borrow semantics
// as String.
func Bytes(b []byte) Value { return Value{Kind: KindBytes, Bin: b} }

func Array(vs []Value) Value { return Value{Kind: KindArray, Arr: vs} }
func MapOf(ps []Pair) Value  { return Value{Kind: KindMap, Map: ps} }
func Tuple(vs []Value) Value { return Value{Kind: KindTuple, Tup: vs} }

// IsNull reports whether v is the null variant.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Clone returns a deep copy of v whose Str/Bin/Arr/Map/Tup slices are newly
// allocated and therefore own their bytes — used when a Value must outlive
// the TopicRecord it was derived from (e.g. a converter's output written
// into a state-topic snapshot).
func (v Value) Clone() Value {
	switch v.Kind {
	case KindString:
		return String(append([]byte(nil), v.Str...))
	case KindBytes:
		return Bytes(append([]byte(nil), v.Bin...))
	case KindArray:
		out := make([]Value, len(v.Arr))
		for i, e := range v.Arr {
			out[i] = e.Clone()
		}
		return Array(out)
	case KindMap:
		out := make([]Pair, len(v.Map))
		for i, p := range v.Map {
			out[i] = Pair{Key: p.Key.Clone(), Val: p.Val.Clone()}
		}
		return MapOf(out)
	case KindTuple:
		out := make([]Value, len(v.Tup))
		for i, e := range v.Tup {
			out[i] = e.Clone()
		}
		return Tuple(out)
	default:
		return v
	}
}

// String-format rendering used for logging and for canonical-byte-form
// extraction of upsert keys (§4.9): not a wire format, just a stable text
// representation of a scalar.
func (v Value) CanonicalText() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindInt64:
		return fmt.Sprintf("%d", v.I64)
	case KindUint64:
		return fmt.Sprintf("%d", v.U64)
	case KindFloat32:
		return fmt.Sprintf("%g", v.F32)
	case KindFloat64:
		return fmt.Sprintf("%g", v.F64)
	case KindBool:
		return fmt.Sprintf("%t", v.B)
	case KindDecimal:
		return fmt.Sprintf("%x/%d", v.Dec.Unscaled, v.Dec.Scale)
	case KindTimestamp:
		return fmt.Sprintf("%d", v.Ts.Micros)
	case KindString:
		return string(v.Str)
	case KindBytes:
		return fmt.Sprintf("%x", v.Bin)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Row is a positional vector of Value. Position i corresponds to position i
// in the owning source schema's field list. Rows carry no field names at
// runtime — names are consulted only via MapSchema. A Row's lifetime is
// bound to the TopicRecord whose data was deserialized to produce it: once
// that record is no longer pinned, every borrowed Str/Bin slice in the Row
// is invalid.
type Row struct {
	Values []Value
}

// Len returns the number of positional values in the row.
func (r Row) Len() int { return len(r.Values) }

// At returns the value at position i, or the null Value if i is out of
// range (callers that must distinguish out-of-range from an explicit null
// should check against Len first).
func (r Row) At(i int) Value {
	if i < 0 || i >= len(r.Values) {
		return Null()
	}
	return r.Values[i]
}

// Clone deep-copies every value in the row, detaching it from any borrowed
// source buffer.
func (r Row) Clone() Row {
	out := make([]Value, len(r.Values))
	for i, v := range r.Values {
		out[i] = v.Clone()
	}
	return Row{Values: out}
}
