package store

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aussiebroadwan/rolechat/pkg/cryptox"
)

// saltKey holds the Argon2id salt for sealed values. It is stored in the
// clear next to the values it protects.
const saltKey = "sealSalt"

// Sealed encrypts every value before it reaches the wrapped KV. Keys are left
// as-is so drivers can still look them up.
type Sealed struct {
	KV
	sealer *cryptox.Sealer
}

// NewSealed wraps kv, creating and persisting a salt on first use.
func NewSealed(ctx context.Context, kv KV, passphrase string) (*Sealed, error) {
	salt, err := loadSalt(ctx, kv)
	if err != nil {
		return nil, err
	}

	sealer, err := cryptox.NewSealer(passphrase, salt)
	if err != nil {
		return nil, err
	}

	return &Sealed{KV: kv, sealer: sealer}, nil
}

func loadSalt(ctx context.Context, kv KV) ([]byte, error) {
	encoded, ok, err := kv.Get(ctx, saltKey)
	if err != nil {
		return nil, fmt.Errorf("load seal salt: %w", err)
	}
	if ok {
		salt, err := base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode seal salt: %w", err)
		}
		return salt, nil
	}

	salt, err := cryptox.NewSalt()
	if err != nil {
		return nil, err
	}
	if err := kv.Set(ctx, saltKey, base64.RawStdEncoding.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("store seal salt: %w", err)
	}
	return salt, nil
}

func (s *Sealed) Get(ctx context.Context, key string) (string, bool, error) {
	sealed, ok, err := s.KV.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}

	value, err := s.sealer.Open(sealed)
	if err != nil {
		return "", false, fmt.Errorf("unseal %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Sealed) Set(ctx context.Context, key, value string) error {
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	return s.KV.Set(ctx, key, sealed)
}
