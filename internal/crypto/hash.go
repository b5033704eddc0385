package crypto

import (
	"crypto/sha512"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// hashIterations matches the portal's JavaScript login implementation.
	hashIterations = 99999
	// hashKeyLen is the derived-key length in bytes (1024 hex characters).
	hashKeyLen = 512
)

// ComputeHash derives the portal login hash from the account password and a
// tenant-scoped salt using PBKDF2-HMAC-SHA512. Both password and salt enter
// as their UTF-8 bytes; the salt is NOT hex-decoded, which is the common
// implementation pitfall. The function is pure and deterministic: identical
// inputs always yield the identical 1024-character hex string.
func ComputeHash(secret, salt string) string {
	key := pbkdf2.Key([]byte(secret), []byte(salt), hashIterations, hashKeyLen, sha512.New)
	return hex.EncodeToString(key)
}
