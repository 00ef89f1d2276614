package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
)

func testSigner(t *testing.T) (*Signer, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}
	s, err := NewSigner("test-key-id", key)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	return s, key
}

func TestSigner_Sign(t *testing.T) {
	s, key := testSigner(t)

	req, err := s.Sign("GET", "/trade-api/v2/markets")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if req.Timestamp == "" {
		t.Error("Timestamp is empty")
	}
	if req.Signature == "" {
		t.Error("Signature is empty")
	}

	// Signature must verify against timestamp + method + path.
	sig, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		t.Fatalf("signature is not valid base64: %v", err)
	}
	hashed := sha256.Sum256([]byte(req.Timestamp + "GET" + "/trade-api/v2/markets"))
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hashed[:], sig,
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	if err != nil {
		t.Errorf("signature does not verify: %v", err)
	}
}

func TestSigner_SignProducesDistinctSignatures(t *testing.T) {
	s, _ := testSigner(t)

	// PSS is salted, so even identical payloads produce distinct signatures.
	a, err := s.Sign("GET", HandshakePath)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	b, err := s.Sign("GET", HandshakePath)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if a.Signature == b.Signature {
		t.Error("two signatures for the same method/path are identical")
	}
}

func TestSigner_SignHandshake(t *testing.T) {
	s, _ := testSigner(t)

	req, err := s.SignHandshake()
	if err != nil {
		t.Fatalf("SignHandshake failed: %v", err)
	}

	if req.Method != "GET" {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	if req.Path != HandshakePath {
		t.Errorf("Path = %q, want %q", req.Path, HandshakePath)
	}

	headers := req.Headers(s.KeyID())
	if headers[HeaderKey] != "test-key-id" {
		t.Errorf("%s = %q, want %q", HeaderKey, headers[HeaderKey], "test-key-id")
	}
	if headers[HeaderTimestamp] == "" {
		t.Errorf("%s is empty", HeaderTimestamp)
	}
	if headers[HeaderSignature] == "" {
		t.Errorf("%s is empty", HeaderSignature)
	}
}

func TestNewSigner_Validation(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}

	if _, err := NewSigner("", key); err == nil {
		t.Error("expected error for empty key ID")
	}
	if _, err := NewSigner("key", nil); err == nil {
		t.Error("expected error for nil private key")
	}
}

func TestLoadPrivateKey_PKCS8(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("failed to marshal PKCS#8: %v", err)
	}
	path := writeKeyFile(t, &pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})

	loaded, err := LoadPrivateKey(path)
	if err != nil {
		t.Fatalf("LoadPrivateKey failed: %v", err)
	}
	if loaded.N.Cmp(key.N) != 0 {
		t.Error("loaded key does not match original")
	}
}

func TestLoadPrivateKey_PKCS1(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}

	path := writeKeyFile(t, &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	loaded, err := LoadPrivateKey(path)
	if err != nil {
		t.Fatalf("LoadPrivateKey failed: %v", err)
	}
	if loaded.N.Cmp(key.N) != 0 {
		t.Error("loaded key does not match original")
	}
}

func TestLoadPrivateKey_Errors(t *testing.T) {
	if _, err := LoadPrivateKey(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Error("expected error for missing key file")
	}

	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not a pem file"), 0600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if _, err := LoadPrivateKey(garbage); err == nil {
		t.Error("expected error for non-PEM content")
	}
}

func TestLoadSigner_MissingPath(t *testing.T) {
	if _, err := LoadSigner("key-id", ""); err == nil {
		t.Error("expected error for empty private key path")
	}
}

func writeKeyFile(t *testing.T, block *pem.Block) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-key.pem")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatalf("failed to write temp key: %v", err)
	}
	return path
}
