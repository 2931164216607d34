package signer

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/vault/api"
)

// VaultConfig configures the Vault transit signer.
type VaultConfig struct {
	// Address is the Vault server address
	Address string
	// Token authenticates to Vault; when empty, VAULT_TOKEN is used
	Token string
	// KeyName is the transit key used for signing
	KeyName string
	// MountPath is the transit engine mount, default "transit"
	MountPath string
	// Timeout bounds each Vault request
	Timeout time.Duration
}

// TransitSigner signs block hashes with a HashiCorp Vault transit key. The
// private key never leaves Vault; both signing and verification are remote
// calls.
type TransitSigner struct {
	client      *api.Client
	validatorID string
	keyName     string
	mountPath   string
}

// NewTransitSigner creates a Vault-backed signer.
func NewTransitSigner(validatorID string, cfg VaultConfig) (*TransitSigner, error) {
	if cfg.KeyName == "" {
		return nil, fmt.Errorf("vault transit key name is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	client, err := api.NewClient(&api.Config{
		Address: cfg.Address,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	} else if token := os.Getenv("VAULT_TOKEN"); token != "" {
		client.SetToken(token)
	}

	mountPath := cfg.MountPath
	if mountPath == "" {
		mountPath = "transit"
	}

	return &TransitSigner{
		client:      client,
		validatorID: validatorID,
		keyName:     cfg.KeyName,
		mountPath:   mountPath,
	}, nil
}

// ValidatorID returns the signing authority identifier.
func (s *TransitSigner) ValidatorID() string {
	return s.validatorID
}

// Sign requests a signature over digest from the transit engine.
func (s *TransitSigner) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	path := fmt.Sprintf("%s/sign/%s", s.mountPath, s.keyName)
	secret, err := s.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"input": base64.StdEncoding.EncodeToString(digest),
	})
	if err != nil {
		return nil, fmt.Errorf("vault sign failed: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault sign returned no data")
	}

	sig, ok := secret.Data["signature"].(string)
	if !ok || sig == "" {
		return nil, fmt.Errorf("vault sign returned no signature")
	}
	return []byte(sig), nil
}

// Verify checks the signature through the transit verify endpoint. A Vault
// outage fails closed: an unverifiable signature reports invalid, and the
// periodic validator will re-check on its next cycle.
func (s *TransitSigner) Verify(digest, signature []byte) bool {
	path := fmt.Sprintf("%s/verify/%s", s.mountPath, s.keyName)
	secret, err := s.client.Logical().Write(path, map[string]interface{}{
		"input":     base64.StdEncoding.EncodeToString(digest),
		"signature": string(signature),
	})
	if err != nil || secret == nil || secret.Data == nil {
		return false
	}
	valid, ok := secret.Data["valid"].(bool)
	return ok && valid
}
