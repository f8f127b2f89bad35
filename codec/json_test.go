package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauss-project/gauss/codec"
	"github.com/gauss-project/gauss/schema"
	"github.com/gauss-project/gauss/value"
)

func quoteSchema() schema.Schema {
	return schema.Schema{Fields: []schema.Field{
		{Name: "symbol", Type: schema.FieldType{Name: "string"}},
		{Name: "bid", Type: schema.FieldType{Name: "float64"}},
	}}
}

func TestJSONCodecRoundTrip(t *testing.T) {
	c := codec.NewJSONCodec(quoteSchema())

	row, err := c.Deserialize([]byte(`{"symbol":"BTC","bid":50000}`))
	require.NoError(t, err)
	assert.Equal(t, "BTC", string(row.At(0).Str))
	assert.Equal(t, 50000.0, row.At(1).F64)

	out, err := c.Serialize(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"BTC","bid":50000}`, string(out))
}

func TestJSONCodecMissingKeyDecodesNull(t *testing.T) {
	c := codec.NewJSONCodec(quoteSchema())
	row, err := c.Deserialize([]byte(`{"symbol":"BTC"}`))
	require.NoError(t, err)
	assert.True(t, row.At(1).IsNull())
}

func TestJSONCodecMalformedFrame(t *testing.T) {
	c := codec.NewJSONCodec(quoteSchema())
	_, err := c.Deserialize([]byte(`not json`))
	require.Error(t, err)
}

func TestJSONCodecSerializeRowLengthMismatch(t *testing.T) {
	c := codec.NewJSONCodec(quoteSchema())
	_, err := c.Serialize(value.Row{Values: []value.Value{value.String([]byte("only one"))}})
	require.Error(t, err)
}
