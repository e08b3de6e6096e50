// Package claim derives the numeric secret committed on-chain at deposit
// time. Whoever later presents the matching secret to the chamber contract
// can claim the deposited funds, so the derivation must be reproducible from
// the order record alone.
package claim

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

// secretBytes is the truncation length applied to the digest. The chamber's
// secret field holds values below 2^200, so 25 bytes (200 bits) is the
// largest truncation that cannot overflow it.
const secretBytes = 25

// saltBytes is the length of the random session salt.
const saltBytes = 16

// Derive computes the claim secret for an order as a decimal string.
//
// The input is the concatenation salt || email || productID, hashed with
// SHA-256 and truncated to the first 25 bytes, interpreted as a big-endian
// unsigned integer. The result is deterministic for fixed inputs and always
// strictly below 2^200.
func Derive(salt, email, productID string) string {
	sum := sha256.Sum256([]byte(salt + email + productID))
	return new(big.Int).SetBytes(sum[:secretBytes]).String()
}

// NewSalt returns a fresh random hex token. The salt is mixed into the claim
// derivation to keep secrets unique across orders; it does not need to stay
// confidential, only to not repeat.
func NewSalt() string {
	var b [saltBytes]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
