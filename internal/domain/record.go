package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// RecordID derives the stable identifier of a chunk from its source, ordinal
// and a short content hash.
func RecordID(source string, ordinal int, text string) string {
	sum := md5.Sum([]byte(text))
	return fmt.Sprintf("%s-%d-%s", source, ordinal, hex.EncodeToString(sum[:])[:12])
}

// NewChunkRecord pairs a chunk with its embedding under its stable ID.
func NewChunkRecord(c Chunk, embedding []float32) ChunkRecord {
	return ChunkRecord{ID: RecordID(c.Source, c.Ordinal, c.Text), Chunk: c, Embedding: embedding}
}
