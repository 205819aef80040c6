package session

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealerInfo = "profile-portal session tokens v1"

// Sealer encrypts token pairs before they leave the process.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(secret string) (*Sealer, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must be at least 32 characters")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sealerInfo)), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init session cipher: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// Seal binds the ciphertext to the session id so a sealed value cannot be
// replayed under another id.
func (s *Sealer) Seal(id string, tokens Tokens) ([]byte, error) {
	plaintext, err := json.Marshal(tokens)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return s.aead.Seal(nonce, nonce, plaintext, []byte(id)), nil
}

func (s *Sealer) Open(id string, sealed []byte) (Tokens, error) {
	if len(sealed) < s.aead.NonceSize() {
		return Tokens{}, errors.New("sealed session value is truncated")
	}

	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(id))
	if err != nil {
		return Tokens{}, fmt.Errorf("open sealed session value: %w", err)
	}

	var tokens Tokens
	if err := json.Unmarshal(plaintext, &tokens); err != nil {
		return Tokens{}, fmt.Errorf("decode session value: %w", err)
	}

	return tokens, nil
}
