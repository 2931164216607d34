package signer

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// Ed25519Signer signs with an in-process ed25519 key. Intended for tests
// and single-node deployments where no external key custody is available.
type Ed25519Signer struct {
	validatorID string
	private     ed25519.PrivateKey
	public      ed25519.PublicKey
}

// NewEd25519Signer wraps an existing private key.
func NewEd25519Signer(validatorID string, private ed25519.PrivateKey) (*Ed25519Signer, error) {
	if len(private) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 private key size: %d", len(private))
	}
	return &Ed25519Signer{
		validatorID: validatorID,
		private:     private,
		public:      private.Public().(ed25519.PublicKey),
	}, nil
}

// GenerateEd25519Signer creates a signer with a fresh random key.
func GenerateEd25519Signer(validatorID string) (*Ed25519Signer, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}
	return NewEd25519Signer(validatorID, private)
}

// ValidatorID returns the signing authority identifier.
func (s *Ed25519Signer) ValidatorID() string {
	return s.validatorID
}

// Sign signs the digest with the in-process key.
func (s *Ed25519Signer) Sign(_ context.Context, digest []byte) ([]byte, error) {
	return ed25519.Sign(s.private, digest), nil
}

// Verify checks the signature against the signer's public key.
func (s *Ed25519Signer) Verify(digest, signature []byte) bool {
	return ed25519.Verify(s.public, digest, signature)
}

// PublicKey returns the verification key for external collaborators.
func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.public
}
