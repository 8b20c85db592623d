package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// KeySize AES-256 key length in bytes.
const KeySize = 32

var errInvalidIV = errors.New("invalid iv length")

// AESEncryptionService seals values at rest with AES-256-GCM. Ciphertext and nonce travel as
// separate base64 strings so they map onto the *_enc and *_iv columns.
type AESEncryptionService struct {
	aead cipher.AEAD
}

// NewAESEncryptionService takes the key as 64 hex characters.
func NewAESEncryptionService(hexKey string) (*AESEncryptionService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not hex: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes (%d hex chars), got %d", KeySize, KeySize*2, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESEncryptionService{aead: aead}, nil
}

func (s *AESEncryptionService) Encrypt(plaintext string) (string, string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", "", fmt.Errorf("read nonce: %w", err)
	}

	sealed := s.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return encode(sealed), encode(nonce), nil
}

func (s *AESEncryptionService) Decrypt(ciphertext, iv string) (string, error) {
	sealed, err := decode("ciphertext", ciphertext)
	if err != nil {
		return "", err
	}
	nonce, err := decode("iv", iv)
	if err != nil {
		return "", err
	}
	if len(nonce) != s.aead.NonceSize() {
		return "", errInvalidIV
	}

	plaintext, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(plaintext), nil
}

func encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decode(field, value string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s encoding: %w", field, err)
	}
	return b, nil
}
