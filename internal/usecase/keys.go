package usecase

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/wekeepgrowing/semo-keyhub/internal/domain/entity"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
)

const (
	publishableKeyBytes = 16 // 128 bits, 32 hex chars
	secretKeyBytes      = 32 // 256 bits, 64 hex chars
)

// GenerateKeyPair mints a fresh publishable/secret pair for mode.
func GenerateKeyPair(mode model.Mode) (*entity.KeyPair, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("cannot generate keys for mode %q", mode)
	}

	pk, err := randomHex(publishableKeyBytes)
	if err != nil {
		return nil, err
	}
	sk, err := randomHex(secretKeyBytes)
	if err != nil {
		return nil, err
	}

	return &entity.KeyPair{
		PublishableKey: fmt.Sprintf("pk_%s_%s", mode, pk),
		SecretKey:      fmt.Sprintf("sk_%s_%s", mode, sk),
	}, nil
}

// HashSecret returns the lowercase hex SHA-256 of secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// ModeOfKey reads the mode embedded in a publishable or secret key prefix.
func ModeOfKey(key string) (model.Mode, bool) {
	for _, mode := range []model.Mode{model.ModeSandbox, model.ModeProduction} {
		m := string(mode)
		if strings.HasPrefix(key, "pk_"+m+"_") || strings.HasPrefix(key, "sk_"+m+"_") {
			return mode, true
		}
	}
	return "", false
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
