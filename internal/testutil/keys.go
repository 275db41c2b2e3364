// Package testutil provides key fixtures and a mock token endpoint for package tests.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"sync"
	"testing"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/ssh"
)

const Passphrase = "P@ssw0rd"

var (
	sharedRSAKey     *rsa.PrivateKey
	sharedRSAKeyOnce sync.Once
)

// RSAKey returns a cached 2048 bit key.
func RSAKey() *rsa.PrivateKey {
	sharedRSAKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic("failed to generate shared rsa key: " + err.Error())
		}
		sharedRSAKey = key
	})
	return sharedRSAKey
}

func ECKey(t *testing.T, curve elliptic.Curve) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() failed: %v", err)
	}
	return key
}

// PKCS1PEM renders key as "RSA PRIVATE KEY".
func PKCS1PEM(key *rsa.PrivateKey) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
}

// PKCS8PEM renders key as "PRIVATE KEY".
func PKCS8PEM(t *testing.T, key any) string {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey() failed: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func ECPEM(t *testing.T, key *ecdsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey() failed: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
}

// EncryptedPKCS8PEM renders key as "ENCRYPTED PRIVATE KEY" (PBES2, AES-256-CBC).
func EncryptedPKCS8PEM(t *testing.T, key any, passphrase string) string {
	t.Helper()
	der, err := pkcs8.MarshalPrivateKey(key, []byte(passphrase), nil)
	if err != nil {
		t.Fatalf("MarshalPrivateKey() failed: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der}))
}

// LegacyEncryptedPEM renders key with "Proc-Type: 4,ENCRYPTED" headers, as produced
// by `openssl genrsa -aes256`.
func LegacyEncryptedPEM(t *testing.T, key *rsa.PrivateKey, passphrase string) string {
	t.Helper()
	//nolint:staticcheck // legacy format is still what openssl emits for genrsa -aes256
	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key), []byte(passphrase), x509.PEMCipherAES256)
	if err != nil {
		t.Fatalf("EncryptPEMBlock() failed: %v", err)
	}
	return string(pem.EncodeToMemory(block))
}

func OpenSSHPEM(t *testing.T, key any, passphrase string) string {
	t.Helper()
	var block *pem.Block
	var err error
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(key, "test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(key, "test", []byte(passphrase))
	}
	if err != nil {
		t.Fatalf("MarshalPrivateKey() failed: %v", err)
	}
	return string(pem.EncodeToMemory(block))
}

// BareBase64 is the PKCS#8 DER of key with PEM header and footer removed.
func BareBase64(t *testing.T, key any) string {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey() failed: %v", err)
	}
	return base64.StdEncoding.EncodeToString(der)
}
