// Package executor implements the Data-Pipeline Executor (C10): the
// per-record deserialize -> convert -> write-native path that runs inside
// a decoding storage's Save, plus the batching discipline that keeps a
// buffered TopicRecord's lifetime independent of any one Row's borrowed
// lifetime. Grounded on spec.md §4.8/§4.9 and
// original_source/libs/gauss-api/src/storage.rs's StorageContext.
package executor

import (
	"fmt"

	"github.com/gauss-project/gauss/codec"
	"github.com/gauss-project/gauss/converter"
	"github.com/gauss-project/gauss/mapping"
	"github.com/gauss-project/gauss/record"
	"github.com/gauss-project/gauss/schema"
	"github.com/gauss-project/gauss/value"
	"github.com/gauss-project/gauss/xerrors"
)

// ConverterLookup resolves a converter name to the instance to apply. A
// FieldMap carries only the converter's name, not a bound instance, so
// Execute calls Converter(fm.ConverterName) for every Plugin entry of every
// record; the lookup is not cached between records.
type ConverterLookup interface {
	Converter(name string) (converter.FieldConverter, bool)
}

// WriteNative receives one record's collected output values in
// target-schema field order and either emits a native row immediately or
// appends it to an internal batch buffer.
type WriteNative interface {
	WriteNative(values []value.Value) error
}

// Execute runs steps 1-4 of §4.8 for a single TopicRecord: deserialize,
// apply each FieldMap in order, and hand the collected output values to
// sink. row is dropped (goes out of scope) no later than Execute's return,
// so sink.WriteNative must not retain any borrowed Str/Bin slice beyond
// the call — it must copy what it needs to keep.
func Execute(rec record.TopicRecord, serializer codec.Codec, ms mapping.MapSchema, converters ConverterLookup, sink WriteNative) error {
	row, err := serializer.Deserialize(rec.Data)
	if err != nil {
		return err
	}

	out := make([]value.Value, 0, len(ms.Target.Fields))
	for _, fm := range ms.Fields {
		switch fm.Converter {
		case mapping.Passthrough:
			out = append(out, row.At(fm.Source.Index))
		case mapping.Plugin:
			conv, ok := resolveConverter(fm, converters)
			if !ok {
				return xerrors.Config(fmt.Errorf("%w: %q", xerrors.ErrUnknownConverter, fm.ConverterName), "executor.Execute", "resolveConverter")
			}
			out = append(out, conv.Convert(row.At(fm.Source.Index)))
		case mapping.Computed, mapping.Excluded:
			// no output value: computed emits via storage default/materialization,
			// excluded contributes nothing.
		}
	}

	return sink.WriteNative(out)
}

func resolveConverter(fm mapping.FieldMap, converters ConverterLookup) (converter.FieldConverter, bool) {
	if converters == nil {
		return converter.Passthrough, fm.ConverterName == ""
	}
	return converters.Converter(fm.ConverterName)
}

// KeyFieldIndex locates key_field's position in src for the upsert
// key-extraction algorithm of §4.9.
func KeyFieldIndex(src schema.Schema, keyField string) (int, error) {
	idx := src.IndexOf(keyField)
	if idx < 0 {
		return -1, xerrors.Config(fmt.Errorf("key field %q not present in source schema", keyField), "executor.KeyFieldIndex", "lookup")
	}
	return idx, nil
}

// ExtractKey renders the Value at keyIndex to its canonical byte form, the
// upsert key. Fails with MissingKeyField when the value is null.
func ExtractKey(row value.Row, keyIndex int) (string, error) {
	v := row.At(keyIndex)
	if v.IsNull() {
		return "", xerrors.Encoding(xerrors.ErrMissingKeyField, "executor.ExtractKey", "extract")
	}
	return v.CanonicalText(), nil
}
