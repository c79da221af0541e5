package tools

import (
	"crypto/sha512"
	"encoding/hex"
)

func EncryptTextSHA512(text string) string {
	sum := sha512.Sum512([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Fingerprint identifies a text in logs without writing the text itself.
func Fingerprint(text string) string {
	return EncryptTextSHA512(text)[:16]
}
