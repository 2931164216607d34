// Package signer defines the block-signing capability consumed by the
// chain engine. Private key material is owned by an external key-custody
// collaborator; the engine only ever holds a capability that signs bytes
// and verifies signatures. The local ed25519 signer exists for tests and
// single-node deployments, the Vault transit signer for deployments where
// keys live in an HSM-backed transit engine.
package signer

import "context"

// Signer signs block hashes and verifies block signatures. Implementations
// must be safe for concurrent use; the engine calls Sign from its writer
// section and Verify from the background validator.
type Signer interface {
	// ValidatorID identifies the signing authority recorded on each block
	ValidatorID() string
	// Sign returns a signature over digest, or an error when the signing
	// backend is unavailable
	Sign(ctx context.Context, digest []byte) ([]byte, error)
	// Verify reports whether signature is a valid signature over digest
	Verify(digest, signature []byte) bool
}
