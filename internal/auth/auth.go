// Package auth implements Kalshi request signing using RSA-PSS signatures.
//
// Every REST request and WebSocket handshake carries three headers: the API
// key ID, a millisecond timestamp, and a base64 RSA-PSS signature over
// timestamp + method + path. Timestamps outside the server's acceptance
// window are rejected, so a signature is generated fresh for every attempt
// and never reused.
package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Header names for signed requests.
const (
	HeaderKey       = "KALSHI-ACCESS-KEY"
	HeaderTimestamp = "KALSHI-ACCESS-TIMESTAMP"
	HeaderSignature = "KALSHI-ACCESS-SIGNATURE"
)

// HandshakePath is the path signed for WebSocket handshakes.
const HandshakePath = "/trade-api/ws/v2"

// Signer produces time-bound authentication proofs for API requests.
// The key material is loaded once and is read-only for the process lifetime.
type Signer struct {
	keyID string
	key   *rsa.PrivateKey
}

// NewSigner creates a Signer from a key ID and parsed private key.
func NewSigner(keyID string, key *rsa.PrivateKey) (*Signer, error) {
	if keyID == "" {
		return nil, fmt.Errorf("API key ID is required")
	}
	if key == nil {
		return nil, fmt.Errorf("private key is required")
	}
	return &Signer{keyID: keyID, key: key}, nil
}

// LoadSigner loads a Signer from a key ID and a PEM private key file.
func LoadSigner(keyID, privateKeyPath string) (*Signer, error) {
	if privateKeyPath == "" {
		return nil, fmt.Errorf("private key path is required")
	}
	key, err := LoadPrivateKey(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}
	return NewSigner(keyID, key)
}

// LoadPrivateKey loads an RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	// Try PKCS#8 first (newer format)
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key is not an RSA private key")
		}
		return rsaKey, nil
	}

	// Fall back to PKCS#1 (older format)
	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return rsaKey, nil
}

// KeyID returns the API key identifier.
func (s *Signer) KeyID() string {
	return s.keyID
}

// SignedRequest is a single-use authentication proof for one request attempt.
type SignedRequest struct {
	Method    string
	Path      string
	Timestamp string // Unix milliseconds, decimal string
	Signature string // base64 RSA-PSS signature
}

// Headers returns the three authentication headers for this proof.
func (r SignedRequest) Headers(keyID string) map[string]string {
	return map[string]string{
		HeaderKey:       keyID,
		HeaderTimestamp: r.Timestamp,
		HeaderSignature: r.Signature,
	}
}

// Sign produces a fresh proof for the given method and path. The path must
// not include host or query string.
func (s *Signer) Sign(method, path string) (SignedRequest, error) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

	sig, err := s.sign(ts, method, path)
	if err != nil {
		return SignedRequest{}, err
	}

	return SignedRequest{
		Method:    method,
		Path:      path,
		Timestamp: ts,
		Signature: sig,
	}, nil
}

// SignHandshake signs the fixed WebSocket handshake path. There is no body
// component; the method is always GET.
func (s *Signer) SignHandshake() (SignedRequest, error) {
	return s.Sign("GET", HandshakePath)
}

// sign creates an RSA-PSS signature over timestamp + method + path.
func (s *Signer) sign(timestamp, method, path string) (string, error) {
	message := timestamp + method + path
	hashed := sha256.Sum256([]byte(message))

	sig, err := rsa.SignPSS(
		rand.Reader,
		s.key,
		crypto.SHA256,
		hashed[:],
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash},
	)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sig), nil
}
