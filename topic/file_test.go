package topic_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauss-project/gauss/record"
	"github.com/gauss-project/gauss/topic"
)

func TestFileStorageOffsetReadSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.topic")

	fs, err := topic.NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, fs.Save(record.New(1, []byte("first"))))
	require.NoError(t, fs.Save(record.New(2, []byte("second"))))
	require.NoError(t, fs.Close())

	reopened, err := topic.NewFileStorage(path)
	require.NoError(t, err)
	defer reopened.Close()

	result, err := reopened.Read(topic.ReadOffset, topic.ReadParams{Offset: 0})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "first", string(result.Records[0].Data))
	assert.Equal(t, "second", string(result.Records[1].Data))
}

func TestFileStorageLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.topic")
	fs, err := topic.NewFileStorage(path)
	require.NoError(t, err)
	defer fs.Close()

	require.NoError(t, fs.Save(record.New(1, []byte("a"))))
	require.NoError(t, fs.Save(record.New(2, []byte("b"))))

	result, err := fs.Read(topic.ReadLatest, topic.ReadParams{})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "b", string(result.Records[0].Data))
}
