package arweave

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
)

// Wallet holds the RSA signing credential loaded from a JWK keyfile. It is
// read-only after load and safe to share across publishers; signing never
// mutates it.
type Wallet struct {
	key     *rsa.PrivateKey
	owner   string
	address string
}

type jwk struct {
	KeyType string `json:"kty"`
	N       string `json:"n"`
	E       string `json:"e"`
	D       string `json:"d"`
	P       string `json:"p"`
	Q       string `json:"q"`
}

// LoadWallet reads an RSA keypair from an Arweave-style JWK file.
func LoadWallet(path string) (*Wallet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyfile: %w", err)
	}

	var k jwk
	if err := json.Unmarshal(raw, &k); err != nil {
		return nil, fmt.Errorf("parse keyfile: %w", err)
	}
	if k.KeyType != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q", k.KeyType)
	}

	n, err := decodeBigInt(k.N)
	if err != nil {
		return nil, fmt.Errorf("keyfile modulus: %w", err)
	}
	e, err := decodeBigInt(k.E)
	if err != nil {
		return nil, fmt.Errorf("keyfile exponent: %w", err)
	}
	d, err := decodeBigInt(k.D)
	if err != nil {
		return nil, fmt.Errorf("keyfile private exponent: %w", err)
	}
	p, err := decodeBigInt(k.P)
	if err != nil {
		return nil, fmt.Errorf("keyfile prime p: %w", err)
	}
	q, err := decodeBigInt(k.Q)
	if err != nil {
		return nil, fmt.Errorf("keyfile prime q: %w", err)
	}

	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: n, E: int(e.Int64())},
		D:         d,
		Primes:    []*big.Int{p, q},
	}
	key.Precompute()
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid keypair: %w", err)
	}

	ownerBytes := key.PublicKey.N.Bytes()
	addrSum := sha256.Sum256(ownerBytes)

	return &Wallet{
		key:     key,
		owner:   base64.RawURLEncoding.EncodeToString(ownerBytes),
		address: base64.RawURLEncoding.EncodeToString(addrSum[:]),
	}, nil
}

// Owner returns the base64url public modulus carried in transactions.
func (w *Wallet) Owner() string {
	return w.owner
}

// Address returns the wallet address derived from the owner key.
func (w *Wallet) Address() string {
	return w.address
}

// Sign produces an RSA-PSS signature over the given digest.
func (w *Wallet) Sign(digest []byte) ([]byte, error) {
	sig, err := rsa.SignPSS(rand.Reader, w.key, crypto.SHA256, digest, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return sig, nil
}

// Verify checks an RSA-PSS signature against this wallet's public key.
// Used by tests; the network performs the same check on submission.
func (w *Wallet) Verify(digest, sig []byte) error {
	return rsa.VerifyPSS(&w.key.PublicKey, crypto.SHA256, digest, sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
}

func decodeBigInt(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("missing field")
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}
