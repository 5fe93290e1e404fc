package arweave

import (
	"crypto/sha256"
	"encoding/binary"
)

// Merkle chunking of transaction data. The root of the chunk tree is the
// data_root field of a format-2 transaction; the network addresses content
// by it.

const (
	maxChunkSize = 256 * 1024
	noteSize     = 32
)

type merkleNode struct {
	id           []byte
	maxByteRange int
}

// dataRoot computes the Merkle root over the chunked data. Empty data yields
// an empty root, which the network accepts for zero-size transactions.
func dataRoot(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}

	leaves := buildLeaves(chunkData(data))
	for len(leaves) > 1 {
		leaves = buildLayer(leaves)
	}
	return leaves[0].id
}

type chunk struct {
	dataHash     []byte
	maxByteRange int
}

// chunkData splits data into chunks of at most maxChunkSize bytes. When the
// tail would leave a runt chunk, the final two chunks are rebalanced so
// neither is smaller than half the maximum.
func chunkData(data []byte) []chunk {
	var chunks []chunk
	rest := data
	offset := 0

	for len(rest) >= maxChunkSize {
		size := maxChunkSize
		if remaining := len(rest); remaining > maxChunkSize && remaining < 2*maxChunkSize {
			size = (remaining + 1) / 2
		}
		piece := rest[:size]
		sum := sha256.Sum256(piece)
		offset += size
		chunks = append(chunks, chunk{dataHash: sum[:], maxByteRange: offset})
		rest = rest[size:]
	}

	if len(rest) > 0 || len(chunks) == 0 {
		sum := sha256.Sum256(rest)
		chunks = append(chunks, chunk{dataHash: sum[:], maxByteRange: offset + len(rest)})
	}
	return chunks
}

func buildLeaves(chunks []chunk) []merkleNode {
	leaves := make([]merkleNode, 0, len(chunks))
	for _, c := range chunks {
		id := hashBranch(sha256Sum(c.dataHash), sha256Sum(noteBuffer(c.maxByteRange)))
		leaves = append(leaves, merkleNode{id: id, maxByteRange: c.maxByteRange})
	}
	return leaves
}

func buildLayer(nodes []merkleNode) []merkleNode {
	layer := make([]merkleNode, 0, (len(nodes)+1)/2)
	for i := 0; i < len(nodes); i += 2 {
		if i+1 >= len(nodes) {
			layer = append(layer, nodes[i])
			break
		}
		left, right := nodes[i], nodes[i+1]
		id := hashBranch(
			sha256Sum(left.id),
			sha256Sum(right.id),
			sha256Sum(noteBuffer(left.maxByteRange)),
		)
		layer = append(layer, merkleNode{id: id, maxByteRange: right.maxByteRange})
	}
	return layer
}

func hashBranch(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func sha256Sum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// noteBuffer encodes an integer as the protocol's fixed-width big-endian
// note field.
func noteBuffer(n int) []byte {
	buf := make([]byte, noteSize)
	binary.BigEndian.PutUint64(buf[noteSize-8:], uint64(n))
	return buf
}
