package security

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

var ErrEmptySecret = errors.New("empty secret")

const signingKeyInfo = "commercex-cart/api-token/v1"

// DeriveSigningKey stretches the configured secret into a 32-byte HS256 key.
func DeriveSigningKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(signingKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
