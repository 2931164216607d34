package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// HashAlgorithm identifies the content-hash function used by a chain.
// The algorithm is fixed for the life of a chain: switching it would
// invalidate every stored hash and Merkle proof.
type HashAlgorithm string

const (
	// HashSHA256 selects crypto/sha256
	HashSHA256 HashAlgorithm = "sha256"
	// HashSHA3256 selects SHA3-256
	HashSHA3256 HashAlgorithm = "sha3-256"
	// HashBLAKE2b selects BLAKE2b-256
	HashBLAKE2b HashAlgorithm = "blake2b-256"
)

// String returns the string representation
func (a HashAlgorithm) String() string {
	return string(a)
}

// IsValid checks if the algorithm is supported
func (a HashAlgorithm) IsValid() bool {
	switch a {
	case HashSHA256, HashSHA3256, HashBLAKE2b:
		return true
	default:
		return false
	}
}

// Hasher computes hex-encoded content hashes with a fixed algorithm.
// A Hasher is stateless and safe for concurrent use.
type Hasher struct {
	algorithm HashAlgorithm
	newHash   func() hash.Hash
}

// NewHasher returns a Hasher for the given algorithm.
func NewHasher(algorithm HashAlgorithm) (*Hasher, error) {
	var newHash func() hash.Hash
	switch algorithm {
	case HashSHA256:
		newHash = sha256.New
	case HashSHA3256:
		newHash = sha3.New256
	case HashBLAKE2b:
		newHash = func() hash.Hash {
			h, _ := blake2b.New256(nil)
			return h
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrHashAlgorithm, algorithm)
	}
	return &Hasher{algorithm: algorithm, newHash: newHash}, nil
}

// MustNewHasher returns a Hasher or panics on an unknown algorithm. Intended
// for hardcoded algorithms that are guaranteed valid.
func MustNewHasher(algorithm HashAlgorithm) *Hasher {
	h, err := NewHasher(algorithm)
	if err != nil {
		panic(err)
	}
	return h
}

// Algorithm returns the configured hash algorithm.
func (h *Hasher) Algorithm() HashAlgorithm {
	return h.algorithm
}

// Sum returns the hex-encoded hash of data.
func (h *Hasher) Sum(data []byte) string {
	hh := h.newHash()
	hh.Write(data)
	return hex.EncodeToString(hh.Sum(nil))
}

// SumString returns the hex-encoded hash of a string.
func (h *Hasher) SumString(data string) string {
	return h.Sum([]byte(data))
}
