package cache

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// newVariantID produces a variant identifier unique across concurrent
// writers (spec §6.3), combining a high-resolution timestamp with a
// per-call crypto/rand suffix: <hex(nanotime)>-<hex(8 random bytes)>.
// Grounded on the retrieval pack's cache-node "<base>#<random>" node-ID
// scheme, adapted so the timestamp prefix also makes variant IDs roughly
// creation-ordered, which is convenient for debugging even though
// Dominance-Get itself sorts by cached count, not by ID.
func newVariantID() string {
	var buf [8]byte
	_, _ = rand.Read(buf[:]) // crypto/rand.Read never fails on supported platforms
	return hex.EncodeToString(nanoBytes(time.Now().UnixNano())) + "-" + hex.EncodeToString(buf[:])
}

func nanoBytes(n int64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
	return b
}
