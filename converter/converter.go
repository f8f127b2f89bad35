// Package converter implements the Field Converter contract (C4): named
// convert(Value) -> Value plugins whose names are checked at mapping-resolve
// time and recorded in a MapSchema entry; the executor looks the instance up
// by that name for each record it converts. Grounded on
// original_source/libs/gauss-api/src/converter.rs (trait FieldConverter).
package converter

import "github.com/gauss-project/gauss/value"

// FieldConverter must not fail at call time: a domain-invalid input is
// expressed as a null output, never an error or panic. Validity for a given
// (source type, target type) pair is established once, at configuration
// time, by the plugin registry rejecting an incompatible pairing.
type FieldConverter interface {
	Convert(v value.Value) value.Value
}

// Func adapts a plain function to FieldConverter.
type Func func(value.Value) value.Value

func (f Func) Convert(v value.Value) value.Value { return f(v) }

// Passthrough returns v unchanged; it is the converter implied by an absent
// converter name in a field() mapping call.
var Passthrough FieldConverter = Func(func(v value.Value) value.Value { return v })
