// Package signing issues per-user ECDSA keypairs and signs and verifies
// document payloads with them.
package signing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

// Keypair holds both halves of a signing key as PEM text.
type Keypair struct {
	PublicKey  string
	PrivateKey string
}

// IssueKeypair generates a P-384 keypair. crypto/rand aborts the process
// when the system entropy source fails.
func IssueKeypair() (Keypair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("failed to generate key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return Keypair{}, fmt.Errorf("failed to encode private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return Keypair{}, fmt.Errorf("failed to encode public key: %w", err)
	}

	return Keypair{
		PublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		PrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
	}, nil
}

func parsePrivateKey(privatePEM string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privatePEM))
	if block == nil {
		return nil, fmt.Errorf("%w: invalid PEM data", domain.ErrKeyParse)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		// Keys written by other tooling may use the SEC 1 encoding.
		ec, ecErr := x509.ParseECPrivateKey(block.Bytes)
		if ecErr != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrKeyParse, err)
		}
		return ec, nil
	}

	ec, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA private key", domain.ErrKeyParse)
	}
	return ec, nil
}

func parsePublicKey(publicPEM string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicPEM))
	if block == nil {
		return nil, fmt.Errorf("%w: invalid PEM data", domain.ErrKeyParse)
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeyParse, err)
	}

	ec, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA public key", domain.ErrKeyParse)
	}
	return ec, nil
}
