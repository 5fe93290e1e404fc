package arweave

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataRoot_Empty(t *testing.T) {
	assert.Nil(t, dataRoot(nil))
}

func TestDataRoot_SingleChunk(t *testing.T) {
	data := []byte("gecko artifact bytes")

	root := dataRoot(data)
	require.Len(t, root, 32)
	assert.Equal(t, root, dataRoot(data))
	assert.NotEqual(t, root, dataRoot([]byte("different bytes")))
}

func TestDataRoot_MultiChunk(t *testing.T) {
	big := bytes.Repeat([]byte{0xAB}, 3*maxChunkSize+123)

	root := dataRoot(big)
	require.Len(t, root, 32)
	assert.Equal(t, root, dataRoot(big))
}

func TestChunkData_Boundaries(t *testing.T) {
	cases := []struct {
		name string
		size int
	}{
		{"small", 10},
		{"exactly one chunk", maxChunkSize},
		{"one byte over", maxChunkSize + 1},
		{"several chunks", 4*maxChunkSize + 99},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks := chunkData(bytes.Repeat([]byte{1}, tc.size))
			require.NotEmpty(t, chunks)

			// Ranges must cover the data contiguously and every chunk must
			// respect the size ceiling.
			assert.Equal(t, tc.size, chunks[len(chunks)-1].maxByteRange)
			prev := 0
			for _, c := range chunks {
				assert.Greater(t, c.maxByteRange, prev)
				assert.LessOrEqual(t, c.maxByteRange-prev, maxChunkSize)
				prev = c.maxByteRange
			}
		})
	}
}
