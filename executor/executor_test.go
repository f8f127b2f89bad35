package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauss-project/gauss/codec"
	"github.com/gauss-project/gauss/converter"
	"github.com/gauss-project/gauss/executor"
	"github.com/gauss-project/gauss/mapping"
	"github.com/gauss-project/gauss/record"
	"github.com/gauss-project/gauss/schema"
	"github.com/gauss-project/gauss/value"
)

type recordingSink struct{ rows [][]value.Value }

func (s *recordingSink) WriteNative(values []value.Value) error {
	s.rows = append(s.rows, values)
	return nil
}

type noConverters struct{}

func (noConverters) Converter(name string) (converter.FieldConverter, bool) { return nil, false }

func TestExecuteAppliesPassthroughAndSkipsExcludedComputed(t *testing.T) {
	src := schema.Schema{Fields: []schema.Field{
		{Name: "exchange", Type: schema.FieldType{Name: "string"}},
		{Name: "symbol", Type: schema.FieldType{Name: "string"}},
		{Name: "bid", Type: schema.FieldType{Name: "float64"}},
	}}
	c := codec.NewJSONCodec(src)

	ms := mapping.MapSchema{
		Source: src,
		Fields: []mapping.FieldMap{
			{Source: &mapping.FieldRef{Index: 0, Name: "exchange"}, Converter: mapping.Excluded},
			{Source: &mapping.FieldRef{Index: 1, Name: "symbol"}, Target: &schema.Field{Name: "sym"}, Converter: mapping.Passthrough},
			{Target: &schema.Field{Name: "wrt_ts"}, Converter: mapping.Computed},
		},
	}

	sink := &recordingSink{}
	rec := record.New(0, []byte(`{"exchange":"X","symbol":"BTC","bid":1.5}`))
	require.NoError(t, executor.Execute(rec, c, ms, noConverters{}, sink))

	require.Len(t, sink.rows, 1)
	require.Len(t, sink.rows[0], 1)
	assert.Equal(t, "BTC", string(sink.rows[0][0].Str))
}

func TestExtractKeyFailsOnNull(t *testing.T) {
	row := value.Row{Values: []value.Value{value.Null()}}
	_, err := executor.ExtractKey(row, 0)
	require.Error(t, err)
}
