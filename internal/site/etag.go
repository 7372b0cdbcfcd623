package site

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ETag returns a strong entity tag for a rendered page: the quoted hex
// BLAKE3 digest of its bytes, truncated to 128 bits.
func ETag(html string) string {
	sum := blake3.Sum256([]byte(html))
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
