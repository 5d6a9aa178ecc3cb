package config

import (
	"os"
	"testing"
)

func TestSecretKey_EncryptDecrypt(t *testing.T) {
	os.Setenv("CHIMERA_SECRET_KEY", "test-secret-key-for-unit-tests")
	defer os.Unsetenv("CHIMERA_SECRET_KEY")

	sk, err := NewSecretKey()
	if err != nil {
		t.Fatalf("NewSecretKey: %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{"api_key", "sk-abc123def456xyz"},
		{"empty", ""},
		{"long_key", "sk-proj-very-long-api-key-that-might-be-used-by-some-providers-1234567890"},
		{"special_chars", "sk-+/=!@#$%^&*()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted, err := sk.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}

			if tt.plaintext == "" {
				if encrypted != "" {
					t.Fatal("expected empty encrypted for empty plaintext")
				}
				return
			}

			if encrypted[:4] != "enc:" {
				t.Fatalf("expected enc: prefix, got %s", encrypted[:4])
			}

			if encrypted == tt.plaintext {
				t.Fatal("encrypted should differ from plaintext")
			}

			decrypted, err := sk.Decrypt(encrypted)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}

			if decrypted != tt.plaintext {
				t.Fatalf("expected %q, got %q", tt.plaintext, decrypted)
			}
		})
	}
}

func TestSecretKey_DecryptPlaintext(t *testing.T) {
	os.Setenv("CHIMERA_SECRET_KEY", "test-key")
	defer os.Unsetenv("CHIMERA_SECRET_KEY")

	sk, err := NewSecretKey()
	if err != nil {
		t.Fatalf("NewSecretKey: %v", err)
	}

	// Non-encrypted string should pass through
	result, err := sk.Decrypt("plain-text-value")
	if err != nil {
		t.Fatalf("Decrypt plain: %v", err)
	}
	if result != "plain-text-value" {
		t.Fatalf("expected plain-text-value, got %s", result)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := MaskSecret("abc"); got != "****" {
		t.Fatalf("expected ****, got %q", got)
	}
	if got := MaskSecret("sk-abc123def456"); got != "****f456" {
		t.Fatalf("expected ****f456, got %q", got)
	}
}
