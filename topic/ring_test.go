package topic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauss-project/gauss/record"
	"github.com/gauss-project/gauss/topic"
)

func TestRingOffsetReadReturnsWrittenRecords(t *testing.T) {
	r := topic.NewRing(4, topic.PolicyOverwrite)
	require.NoError(t, r.Init(topic.Context{}))

	require.NoError(t, r.Save(record.New(1, []byte("a"))))
	require.NoError(t, r.Save(record.New(2, []byte("b"))))

	result, err := r.Read(topic.ReadOffset, topic.ReadParams{Offset: 0})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "a", string(result.Records[0].Data))
	assert.Equal(t, uint64(2), result.NextOffset)
}

func TestRingLatestReturnsMostRecentOnly(t *testing.T) {
	r := topic.NewRing(4, topic.PolicyOverwrite)
	require.NoError(t, r.Save(record.New(1, []byte("a"))))
	require.NoError(t, r.Save(record.New(2, []byte("b"))))

	result, err := r.Read(topic.ReadLatest, topic.ReadParams{})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "b", string(result.Records[0].Data))
}

func TestRingOverwritePolicyEvictsOldest(t *testing.T) {
	r := topic.NewRing(2, topic.PolicyOverwrite)
	require.NoError(t, r.Save(record.New(1, []byte("a"))))
	require.NoError(t, r.Save(record.New(2, []byte("b"))))
	require.NoError(t, r.Save(record.New(3, []byte("c"))))

	result, err := r.Read(topic.ReadOffset, topic.ReadParams{Offset: 0})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "b", string(result.Records[0].Data))
	assert.Equal(t, "c", string(result.Records[1].Data))
}

func TestRingDropPolicyDiscardsWhenFull(t *testing.T) {
	r := topic.NewRing(2, topic.PolicyDrop)
	require.NoError(t, r.Save(record.New(1, []byte("a"))))
	require.NoError(t, r.Save(record.New(2, []byte("b"))))
	require.NoError(t, r.Save(record.New(3, []byte("c"))))

	result, err := r.Read(topic.ReadOffset, topic.ReadParams{Offset: 0})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "a", string(result.Records[0].Data))
}

func TestRingQueryFiltersByTimeRange(t *testing.T) {
	r := topic.NewRing(8, topic.PolicyOverwrite)
	require.NoError(t, r.Save(record.New(100, []byte("a"))))
	require.NoError(t, r.Save(record.New(200, []byte("b"))))
	require.NoError(t, r.Save(record.New(300, []byte("c"))))

	result, err := r.Read(topic.ReadQuery, topic.ReadParams{FromMs: 150, ToMs: 250})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "b", string(result.Records[0].Data))
}

func TestRingSupportsFanOutOfOffsetAndLatestReaders(t *testing.T) {
	r := topic.NewRing(100, topic.PolicyOverwrite)
	for i := 0; i < 150; i++ {
		require.NoError(t, r.Save(record.New(int64(i), []byte{byte(i)})))
	}

	offsetResult, err := r.Read(topic.ReadOffset, topic.ReadParams{Offset: 0})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(offsetResult.Records), 100)

	latestResult, err := r.Read(topic.ReadLatest, topic.ReadParams{})
	require.NoError(t, err)
	require.Len(t, latestResult.Records, 1)
	assert.Equal(t, byte(149), latestResult.Records[0].Data[0])
}
