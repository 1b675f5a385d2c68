package transfer

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomPayload(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	rand.New(rand.NewSource(int64(n))).Read(b)
	return b
}

func TestSplit_RoundTrip(t *testing.T) {
	const max = DefaultMaxChunkSize

	tests := []struct {
		name       string
		size       int
		wantChunks int
	}{
		{name: "empty", size: 0, wantChunks: 0},
		{name: "one byte", size: 1, wantChunks: 1},
		{name: "exactly one chunk", size: max, wantChunks: 1},
		{name: "one byte over", size: max + 1, wantChunks: 2},
		{name: "ten chunks and a tail", size: 10*max + 37, wantChunks: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := randomPayload(t, tt.size)

			chunks := Split(payload, max)
			require.Len(t, chunks, tt.wantChunks)
			require.Equal(t, tt.wantChunks, ChunkCount(int64(tt.size), max))

			var joined []byte
			for _, c := range chunks {
				require.NotEmpty(t, c)
				require.LessOrEqual(t, len(c), max)
				joined = append(joined, c...)
			}
			require.True(t, bytes.Equal(payload, joined), "reassembled payload differs")
		})
	}
}

func TestSplit_RoundTripThroughChannel(t *testing.T) {
	for _, size := range []int{0, DefaultMaxChunkSize, DefaultMaxChunkSize + 1, 10*DefaultMaxChunkSize + 37} {
		payload := randomPayload(t, size)
		requester, fetcher := NewPipe(Config{Buffer: 64})
		ctx := context.Background()

		go func() {
			for _, c := range Split(payload, fetcher.MaxChunkSize()) {
				if err := fetcher.Send(ctx, Chunk{RequestID: "r1", Data: c}); err != nil {
					return
				}
			}
			fetcher.Send(ctx, Complete{RequestID: "r1", ContentType: "application/octet-stream"})
		}()

		session, err := Assemble(ctx, requester, "r1")
		require.NoError(t, err)
		require.Equal(t, int64(size), session.TotalBytes)
		require.Equal(t, ChunkCount(int64(size), DefaultMaxChunkSize), session.ChunkCount())
		require.True(t, bytes.Equal(payload, session.Bytes()), "size %d: payload differs", size)
		requester.Close()
	}
}
