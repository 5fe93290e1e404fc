package arweave

import (
	"crypto/sha512"
	"strconv"
)

// deepHashChunk is one element of a deep-hash structure: either a raw blob
// or a nested list. The network derives transaction signature payloads from
// this structure, so encoding must match the protocol exactly.
type deepHashChunk struct {
	blob []byte
	list []deepHashChunk
}

func blob(data []byte) deepHashChunk {
	return deepHashChunk{blob: data}
}

func blobString(s string) deepHashChunk {
	return deepHashChunk{blob: []byte(s)}
}

func list(items ...deepHashChunk) deepHashChunk {
	if items == nil {
		items = []deepHashChunk{}
	}
	return deepHashChunk{list: items}
}

// deepHash computes the protocol's SHA-384 structural hash. Blobs hash as
// H(H("blob<len>") || H(data)); lists fold H("list<len>") with each
// element's deep hash.
func deepHash(chunk deepHashChunk) []byte {
	if chunk.list == nil {
		tag := sha384([]byte("blob" + strconv.Itoa(len(chunk.blob))))
		data := sha384(chunk.blob)
		return sha384(append(tag, data...))
	}

	acc := sha384([]byte("list" + strconv.Itoa(len(chunk.list))))
	for _, item := range chunk.list {
		acc = sha384(append(acc, deepHash(item)...))
	}
	return acc
}

func sha384(data []byte) []byte {
	sum := sha512.Sum384(data)
	return sum[:]
}
