package metadata

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	keyLen   = 32 // AES-256
	nonceLen = 12
)

// Encrypt seals doc with AES-256-GCM under a fresh random nonce.
// Output layout: nonce || ciphertext+tag.
func Encrypt(doc ValidJSON, key []byte) ([]byte, error) {
	if len(doc) == 0 {
		return nil, newError(KindEncryption, "encrypt", 0, errors.New("empty document"))
	}

	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, newError(KindEncryption, "encrypt", 0, err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, newError(KindEncryption, "encrypt", 0, fmt.Errorf("failed to generate nonce: %w", err))
	}

	return aesGCM.Seal(nonce, nonce, doc, nil), nil
}

// Decrypt opens data produced by Encrypt and re-validates the plaintext
func Decrypt(data []byte, key []byte) (ValidJSON, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, newError(KindDecryption, "decrypt", 0, err)
	}

	if len(data) < nonceLen+aesGCM.Overhead() {
		return nil, newError(KindDecryption, "decrypt", 0, errors.New("ciphertext too short"))
	}

	plaintext, err := aesGCM.Open(nil, data[:nonceLen], data[nonceLen:], nil)
	if err != nil {
		return nil, newError(KindDecryption, "decrypt", 0, errors.New("authentication failed"))
	}

	doc, err := validateBytes(plaintext)
	clear(plaintext)
	if err != nil {
		return nil, newError(KindDecryption, "decrypt", 0, fmt.Errorf("decrypted document invalid: %w", err))
	}
	return doc, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keyLen {
		return nil, fmt.Errorf("invalid key length: %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
