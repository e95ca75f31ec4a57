// Package auth mints and verifies the bearer tokens that give every game
// operation a stable, unforgeable caller identity. A token is the player
// handle plus a MAC over it under the server secret; there are no
// sessions to store and nothing to expire inside a single game.
package auth

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/nacl/auth"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidHandle = errors.New("handle must be 3-24 characters: letters, digits, underscore")
)

var handleRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,24}$`)

type Minter struct {
	secret [32]byte
}

// NewMinter parses a 64-hex-char (32 byte) secret.
func NewMinter(secretHex string) (*Minter, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(secretHex))
	if err != nil {
		return nil, fmt.Errorf("auth secret is not hex: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("auth secret must be 32 bytes, got %d", len(raw))
	}
	m := &Minter{}
	copy(m.secret[:], raw)
	return m, nil
}

// Mint issues a token of the form "handle.base64url(mac)".
func (m *Minter) Mint(handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if !handleRE.MatchString(handle) {
		return "", ErrInvalidHandle
	}
	mac := auth.Sum([]byte(handle), &m.secret)
	return handle + "." + base64.RawURLEncoding.EncodeToString(mac[:]), nil
}

// Verify returns the handle a token was minted for, rejecting anything
// tampered with or minted under a different secret.
func (m *Minter) Verify(token string) (string, error) {
	handle, macPart, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || handle == "" {
		return "", ErrInvalidToken
	}
	mac, err := base64.RawURLEncoding.DecodeString(macPart)
	if err != nil || len(mac) != auth.Size {
		return "", ErrInvalidToken
	}
	if !auth.Verify(mac, []byte(handle), &m.secret) {
		return "", ErrInvalidToken
	}
	return handle, nil
}
