package signing

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"fmt"

	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

// Result is the outcome of a verification. A signature that does not match
// is a normal result, not an error.
type Result struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Sign returns the base64 ASN.1 ECDSA signature of SHA-384(payload).
func Sign(payload []byte, privatePEM string) (string, error) {
	key, err := parsePrivateKey(privatePEM)
	if err != nil {
		return "", err
	}

	digest := sha512.Sum384(payload)
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks signature against payload and publicPEM. Errors are returned
// only for inputs that cannot be decoded.
func Verify(payload []byte, publicPEM, signature string) (Result, error) {
	key, err := parsePublicKey(publicPEM)
	if err != nil {
		return Result{}, err
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrSignatureEncoding, err)
	}

	digest := sha512.Sum384(payload)
	if !ecdsa.VerifyASN1(key, digest[:], sig) {
		return Result{Valid: false, Error: "signature does not match payload"}, nil
	}
	return Result{Valid: true}, nil
}
