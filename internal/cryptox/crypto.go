// Package cryptox seals sensitive setting values (social access tokens and
// the like) before they are stored.
package cryptox

import (
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "v1:"

// ErrOpen is returned for values that are not sealed by this key or were
// tampered with.
var ErrOpen = errors.New("cryptox: cannot open sealed value")

// DeriveKey stretches a configured passphrase into a 32-byte key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
}

// Sealer encrypts short strings with XChaCha20-Poly1305. The additional data
// binds a ciphertext to where it is stored so it cannot be moved to another
// row.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// NewSealerFromPassphrase derives the key from passphrase with a fixed
// application salt.
func NewSealerFromPassphrase(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("cryptox: empty passphrase")
	}
	key := DeriveKey([]byte(passphrase), []byte("photocaption/settings/v1"))
	defer common.WipeByteArray(key)
	return NewSealer(key)
}

// Seal returns "v1:" followed by base64(nonce || ciphertext).
func (s *Sealer) Seal(plaintext, aad string) string {
	nonce := common.GenerateRandByteArray(s.aead.NonceSize())
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(aad))
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out)
}

func (s *Sealer) Open(sealed, aad string) (string, error) {
	raw, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", ErrOpen
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil || len(data) < s.aead.NonceSize() {
		return "", ErrOpen
	}
	nonce, ct := data[:s.aead.NonceSize()], data[s.aead.NonceSize():]
	pt, err := s.aead.Open(nil, nonce, ct, []byte(aad))
	if err != nil {
		return "", ErrOpen
	}
	return string(pt), nil
}
