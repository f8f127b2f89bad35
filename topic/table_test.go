package topic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauss-project/gauss/codec"
	"github.com/gauss-project/gauss/record"
	"github.com/gauss-project/gauss/schema"
	"github.com/gauss-project/gauss/topic"
)

func symbolSchema() schema.Schema {
	return schema.Schema{Fields: []schema.Field{
		{Name: "symbol", Type: schema.FieldType{Name: "string"}},
		{Name: "price", Type: schema.FieldType{Name: "float64"}},
	}}
}

func TestTableUpsertScenario3(t *testing.T) {
	c := codec.NewJSONCodec(symbolSchema())
	tbl := topic.NewTable("symbol")
	require.NoError(t, tbl.Init(topic.Context{Serializer: c}))

	for _, frameBytes := range [][]byte{
		[]byte(`{"symbol":"BTC","price":1}`),
		[]byte(`{"symbol":"ETH","price":2}`),
		[]byte(`{"symbol":"BTC","price":3}`),
		[]byte(`{"symbol":"SOL","price":4}`),
	} {
		require.NoError(t, tbl.Save(record.New(0, frameBytes)))
	}

	result, err := tbl.Read(topic.ReadSnapshot, topic.ReadParams{})
	require.NoError(t, err)
	require.Len(t, result.Records, 3)

	var btc []byte
	for _, rec := range result.Records {
		row, err := c.Deserialize(rec.Data)
		require.NoError(t, err)
		if string(row.At(0).Str) == "BTC" {
			btc = rec.Data
		}
	}
	require.NotNil(t, btc)
	row, err := c.Deserialize(btc)
	require.NoError(t, err)
	assert.Equal(t, 3.0, row.At(1).F64)
}

func TestTableSubscribeDeliversInitialSnapshot(t *testing.T) {
	c := codec.NewJSONCodec(symbolSchema())
	tbl := topic.NewTable("symbol")
	require.NoError(t, tbl.Init(topic.Context{Serializer: c}))
	require.NoError(t, tbl.Save(record.New(0, []byte(`{"symbol":"BTC","price":1}`))))

	ch := make(chan []record.TopicRecord, 1)
	_, err := tbl.Read(topic.ReadSubscribe, topic.ReadParams{Snapshot: ch})
	require.NoError(t, err)

	snapshot := <-ch
	assert.Len(t, snapshot, 1)

	require.NoError(t, tbl.Save(record.New(0, []byte(`{"symbol":"ETH","price":2}`))))
	snapshot = <-ch
	assert.Len(t, snapshot, 2)
}

func TestTableMissingKeyFieldIsEncodingError(t *testing.T) {
	c := codec.NewJSONCodec(symbolSchema())
	tbl := topic.NewTable("symbol")
	require.NoError(t, tbl.Init(topic.Context{Serializer: c}))

	err := tbl.Save(record.New(0, []byte(`{"price":1}`)))
	require.Error(t, err)
}
