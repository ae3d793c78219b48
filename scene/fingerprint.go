package scene

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the SHA-256 hex digest of the image bytes. It is the
// history key for a photo: same bytes, same fingerprint. Empty input is
// allowed and yields the digest of zero bytes.
func Fingerprint(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}
