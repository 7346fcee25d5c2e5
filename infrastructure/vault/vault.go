// Package vault seals credential secrets with AES-256-GCM.
//
// An envelope is "nonce:tag:ciphertext", each part standard base64. The nonce is
// 16 random bytes per call and the tag is the full 16 byte GCM tag.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"social-publisher/domain/apperror"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize          = 32
	nonceSize        = 16
	tagSize          = 16
	pbkdf2Iterations = 100000
)

var (
	ErrMissingKey        = errors.New("vault key is not configured")
	ErrMalformedEnvelope = errors.New("envelope must have three base64 parts")
)

type Vault struct {
	aead cipher.AEAD
	rand io.Reader
}

// New derives the AES key from key material. Exactly 32 bytes are used as is;
// anything else is stretched with PBKDF2-HMAC-SHA256 over salt.
func New(key, salt string) (*Vault, error) {
	if key == "" {
		return nil, &apperror.CryptoError{Op: "init", Err: ErrMissingKey}
	}
	raw := []byte(key)
	if len(raw) != keySize {
		raw = pbkdf2.Key(raw, []byte(salt), pbkdf2Iterations, keySize, sha256.New)
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, &apperror.CryptoError{Op: "init", Err: err}
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, &apperror.CryptoError{Op: "init", Err: err}
	}
	return &Vault{aead: aead, rand: rand.Reader}, nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(v.rand, nonce); err != nil {
		return "", &apperror.CryptoError{Op: "encrypt", Err: err}
	}
	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	enc := base64.StdEncoding
	return strings.Join([]string{enc.EncodeToString(nonce), enc.EncodeToString(tag), enc.EncodeToString(ct)}, ":"), nil
}

func (v *Vault) Decrypt(envelope string) (string, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return "", &apperror.CryptoError{Op: "decrypt", Err: ErrMalformedEnvelope}
	}
	enc := base64.StdEncoding
	nonce, err := enc.DecodeString(parts[0])
	if err != nil {
		return "", &apperror.CryptoError{Op: "decrypt", Err: fmt.Errorf("nonce: %w", err)}
	}
	tag, err := enc.DecodeString(parts[1])
	if err != nil {
		return "", &apperror.CryptoError{Op: "decrypt", Err: fmt.Errorf("tag: %w", err)}
	}
	ct, err := enc.DecodeString(parts[2])
	if err != nil {
		return "", &apperror.CryptoError{Op: "decrypt", Err: fmt.Errorf("ciphertext: %w", err)}
	}
	if len(nonce) != nonceSize || len(tag) != tagSize {
		return "", &apperror.CryptoError{Op: "decrypt", Err: ErrMalformedEnvelope}
	}
	plain, err := v.aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", &apperror.CryptoError{Op: "decrypt", Err: err}
	}
	return string(plain), nil
}
