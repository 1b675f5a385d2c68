package transfer

import "github.com/samber/lo"

// Split cuts payload into ceil(len/maxChunkSize) consecutive slices.
// An empty payload yields no slices. The slices may alias payload.
func Split(payload []byte, maxChunkSize int) [][]byte {
	if len(payload) == 0 {
		return nil
	}
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	return lo.Chunk(payload, maxChunkSize)
}

// ChunkCount returns how many chunk messages a payload of size bytes needs
func ChunkCount(size int64, maxChunkSize int) int {
	if size <= 0 {
		return 0
	}
	n := size / int64(maxChunkSize)
	if size%int64(maxChunkSize) != 0 {
		n++
	}
	return int(n)
}
