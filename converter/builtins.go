package converter

import "github.com/gauss-project/gauss/value"

// Registry of built-in converters bundled with the engine, keyed by the
// name a mapping script's field() call may reference. Domain-specific
// converters (e.g. a vendor-specific numeric encoding) are loaded the same
// way through the plugin registry; these are simply the ones shipped.
func Builtins() map[string]FieldConverter {
	return map[string]FieldConverter{
		"passthrough":              Passthrough,
		"pg-numeric-to-ch-decimal": FieldConverter(Func(pgNumericToCHDecimal)),
		"micros-to-millis":         FieldConverter(Func(microsToMillis)),
	}
}

// pgNumericToCHDecimal re-scales a decimal value to scale 8 — the layout
// ClickHouse's Decimal64(8) expects — leaving the unscaled magnitude as-is
// since both sides already agree on base-10 fixed point; only the carried
// Scale metadata changes. Non-decimal input converts to null per the
// never-fail contract.
func pgNumericToCHDecimal(v value.Value) value.Value {
	if v.Kind != value.KindDecimal {
		return value.Null()
	}
	d := v.Dec
	d.Scale = 8
	return value.DecimalValue(d)
}

// microsToMillis truncates a Timestamp's microsecond resolution down to
// millisecond precision, used when the target storage only carries ms
// timestamps.
func microsToMillis(v value.Value) value.Value {
	if v.Kind != value.KindTimestamp {
		return value.Null()
	}
	ts := v.Ts
	ts.Micros = (ts.Micros / 1000) * 1000
	ts.Precision = 3
	return value.TimestampValue(ts)
}
