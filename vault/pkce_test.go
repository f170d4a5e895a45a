package vault

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestGeneratePKCE(t *testing.T) {
	ch, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE() error = %v", err)
	}

	if ch.CodeVerifier == "" || ch.CodeChallenge == "" || ch.State == "" {
		t.Fatalf("GeneratePKCE() returned empty field: %+v", ch)
	}

	// 128 bytes of randomness, URL-safe encoded without padding.
	if got := len(ch.CodeVerifier); got != base64.RawURLEncoding.EncodedLen(verifierEntropyBytes) {
		t.Errorf("code verifier length = %d, want %d", got, base64.RawURLEncoding.EncodedLen(verifierEntropyBytes))
	}
	if got := len(ch.State); got != base64.RawURLEncoding.EncodedLen(stateEntropyBytes) {
		t.Errorf("state length = %d, want %d", got, base64.RawURLEncoding.EncodedLen(stateEntropyBytes))
	}

	if _, err := base64.RawURLEncoding.DecodeString(ch.CodeVerifier); err != nil {
		t.Errorf("code verifier is not url-safe base64: %v", err)
	}
	if _, err := base64.RawURLEncoding.DecodeString(ch.State); err != nil {
		t.Errorf("state is not url-safe base64: %v", err)
	}
}

func TestGeneratePKCEChallengeDeterminism(t *testing.T) {
	ch, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE() error = %v", err)
	}

	sum := sha256.Sum256([]byte(ch.CodeVerifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	if ch.CodeChallenge != want {
		t.Errorf("CodeChallenge = %q, want base64url(sha256(verifier)) = %q", ch.CodeChallenge, want)
	}

	if got := ChallengeFromVerifier(ch.CodeVerifier); got != ch.CodeChallenge {
		t.Errorf("ChallengeFromVerifier() = %q, want %q", got, ch.CodeChallenge)
	}
}

func TestGeneratePKCEUniqueness(t *testing.T) {
	seenStates := make(map[string]bool)
	seenVerifiers := make(map[string]bool)

	for i := 0; i < 100; i++ {
		ch, err := GeneratePKCE()
		if err != nil {
			t.Fatalf("GeneratePKCE() error = %v", err)
		}
		if seenStates[ch.State] {
			t.Fatal("GeneratePKCE() produced a duplicate state")
		}
		if seenVerifiers[ch.CodeVerifier] {
			t.Fatal("GeneratePKCE() produced a duplicate verifier")
		}
		if ch.State == ch.CodeVerifier {
			t.Fatal("state and verifier must be generated independently")
		}
		seenStates[ch.State] = true
		seenVerifiers[ch.CodeVerifier] = true
	}
}
