package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// verifierEntropyBytes is the raw randomness behind each code verifier.
	verifierEntropyBytes = 128

	// stateEntropyBytes is the raw randomness behind each state token.
	stateEntropyBytes = 32
)

// Challenge is the PKCE parameter set plus the CSRF state token for one
// authorization flow. The state is generated independently of the verifier.
type Challenge struct {
	CodeVerifier  string
	CodeChallenge string
	State         string
}

// GeneratePKCE returns a fresh verifier/challenge pair and state token.
func GeneratePKCE() (*Challenge, error) {
	verifier, err := randomToken(verifierEntropyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	state, err := randomToken(stateEntropyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	return &Challenge{
		CodeVerifier:  verifier,
		CodeChallenge: ChallengeFromVerifier(verifier),
		State:         state,
	}, nil
}

// ChallengeFromVerifier computes the S256 code challenge for a verifier.
// It is a pure function of the verifier, so the pairing is directly testable.
func ChallengeFromVerifier(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
