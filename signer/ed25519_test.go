package signer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEd25519SignAndVerify(t *testing.T) {
	s, err := GenerateEd25519Signer("validator-1")
	require.NoError(t, err)
	assert.Equal(t, "validator-1", s.ValidatorID())

	digest := []byte("block-hash-to-sign")
	sig, err := s.Sign(context.Background(), digest)
	require.NoError(t, err)

	assert.True(t, s.Verify(digest, sig))
	assert.False(t, s.Verify([]byte("different-digest"), sig))

	tampered := append([]byte(nil), sig...)
	tampered[0] ^= 0xff
	assert.False(t, s.Verify(digest, tampered))
}

func TestEd25519SignersDoNotCrossVerify(t *testing.T) {
	a, err := GenerateEd25519Signer("validator-a")
	require.NoError(t, err)
	b, err := GenerateEd25519Signer("validator-b")
	require.NoError(t, err)

	digest := []byte("digest")
	sig, err := a.Sign(context.Background(), digest)
	require.NoError(t, err)
	assert.False(t, b.Verify(digest, sig))
}

func TestNewEd25519SignerRejectsBadKey(t *testing.T) {
	_, err := NewEd25519Signer("validator-1", []byte("short"))
	require.Error(t, err)
}
