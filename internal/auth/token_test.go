package auth

import (
	"errors"
	"strings"
	"testing"
)

const testSecret = "b7e1f2a3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f"

func TestMintAndVerify(t *testing.T) {
	m, err := NewMinter(testSecret)
	if err != nil {
		t.Fatalf("new minter: %v", err)
	}
	token, err := m.Mint("alice")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !strings.HasPrefix(token, "alice.") {
		t.Fatalf("token shape: %q", token)
	}
	handle, err := m.Verify(token)
	if err != nil || handle != "alice" {
		t.Fatalf("verify: %q %v", handle, err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	m, _ := NewMinter(testSecret)
	token, err := m.Mint("alice")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Swapping the handle keeps the MAC from verifying.
	forged := "mallory." + strings.SplitN(token, ".", 2)[1]
	if _, err := m.Verify(forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("forged handle: got %v", err)
	}

	bad := []string{"", "alice", "alice.", ".mac", "alice.not-base64!!"}
	for _, tok := range bad {
		if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: got %v", tok, err)
		}
	}

	// A token minted under a different secret fails.
	other, _ := NewMinter(strings.Repeat("00", 32))
	otherToken, _ := other.Mint("alice")
	if _, err := m.Verify(otherToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("cross-secret token: got %v", err)
	}
}

func TestMintRejectsBadHandles(t *testing.T) {
	m, _ := NewMinter(testSecret)
	bad := []string{"", "ab", "has space", "way_too_long_handle_over_24ch", "bad-dash"}
	for _, h := range bad {
		if _, err := m.Mint(h); !errors.Is(err, ErrInvalidHandle) {
			t.Fatalf("handle %q: got %v", h, err)
		}
	}
}

func TestNewMinterRejectsBadSecrets(t *testing.T) {
	if _, err := NewMinter("not hex"); err == nil {
		t.Fatalf("expected non-hex secret to fail")
	}
	if _, err := NewMinter("abcd"); err == nil {
		t.Fatalf("expected short secret to fail")
	}
}
