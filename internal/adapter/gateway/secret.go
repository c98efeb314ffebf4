package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// WebhookSecret derives the per-provider webhook HMAC secret from the
// hex-encoded master key via HKDF-SHA256. Every provider gets distinct
// key material, so a secret leaked to one provider cannot be used to
// forge callbacks for another.
func WebhookSecret(masterKeyHex, provider string) ([]byte, error) {
	master, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding master key: %w", err)
	}
	if len(master) < 32 {
		return nil, fmt.Errorf("master key must be at least 32 bytes, got %d", len(master))
	}

	secret := make([]byte, 32)
	kdf := hkdf.New(sha256.New, master, nil, []byte("webhook-hmac-"+provider+"-v1"))
	if _, err := io.ReadFull(kdf, secret); err != nil {
		return nil, fmt.Errorf("deriving webhook secret: %w", err)
	}
	return secret, nil
}
