package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMasterKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestAESEncryptionService_RoundTrip(t *testing.T) {
	svc, err := NewAESEncryptionService(testMasterKeyHex)
	require.NoError(t, err)

	plaintext := "256772123456"
	ciphertext, err := svc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)
	assert.NotContains(t, ciphertext, plaintext)

	decrypted, err := svc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestAESEncryptionService_NonceMakesCiphertextsDistinct(t *testing.T) {
	svc, err := NewAESEncryptionService(testMasterKeyHex)
	require.NoError(t, err)

	a, err := svc.Encrypt("256772123456")
	require.NoError(t, err)
	b, err := svc.Encrypt("256772123456")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAESEncryptionService_TamperedCiphertextRejected(t *testing.T) {
	svc, err := NewAESEncryptionService(testMasterKeyHex)
	require.NoError(t, err)

	ciphertext, err := svc.Encrypt("256772123456")
	require.NoError(t, err)

	// Flip one hex character in the authenticated payload.
	tampered := []byte(ciphertext)
	last := len(tampered) - 1
	if tampered[last] == 'a' {
		tampered[last] = 'b'
	} else {
		tampered[last] = 'a'
	}

	_, err = svc.Decrypt(string(tampered))
	assert.Error(t, err)
}

func TestAESEncryptionService_WrongKeyCannotDecrypt(t *testing.T) {
	svc, err := NewAESEncryptionService(testMasterKeyHex)
	require.NoError(t, err)
	other, err := NewAESEncryptionService(strings.Repeat("ff", 32))
	require.NoError(t, err)

	ciphertext, err := svc.Encrypt("256772123456")
	require.NoError(t, err)

	_, err = other.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestAESEncryptionService_RejectsShortMasterKey(t *testing.T) {
	_, err := NewAESEncryptionService("deadbeef")
	assert.Error(t, err)
}

func TestAESEncryptionService_RejectsNonHexMasterKey(t *testing.T) {
	_, err := NewAESEncryptionService("not hex at all")
	assert.Error(t, err)
}

func TestAESEncryptionService_DecryptRejectsTruncatedInput(t *testing.T) {
	svc, err := NewAESEncryptionService(testMasterKeyHex)
	require.NoError(t, err)

	_, err = svc.Decrypt("abcd")
	assert.Error(t, err)
}
