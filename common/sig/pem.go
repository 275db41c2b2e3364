package sig

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/axent-pl/jwtbearer/common"
	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/ssh"
)

const pemTypeEncryptedPKCS8 = "ENCRYPTED PRIVATE KEY"

// KeyError reports private key material that could not be turned into a signer.
// It always matches common.ErrKey.
type KeyError struct {
	Reason string
	Err    error
}

func (e *KeyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", common.ErrKey, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", common.ErrKey, e.Reason)
}

func (e *KeyError) Unwrap() []error {
	if e.Err == nil {
		return []error{common.ErrKey}
	}
	return []error{common.ErrKey, e.Err}
}

// ParsePrivateKey decodes private key material into a signer.
//
// Accepted forms:
//
//   - PEM "RSA PRIVATE KEY", "EC PRIVATE KEY", "PRIVATE KEY", "OPENSSH PRIVATE KEY"
//   - the same with legacy "Proc-Type: 4,ENCRYPTED" headers or OpenSSH passphrase protection
//   - PEM "ENCRYPTED PRIVATE KEY" (PKCS#8 PBES2)
//   - base64 DER with the PEM header and footer removed
//
// The passphrase is only consulted for encrypted material; it is ignored otherwise.
func ParsePrivateKey(material, passphrase []byte) (crypto.Signer, error) {
	material = normalizeMaterial(material)
	if len(material) == 0 {
		return nil, &KeyError{Reason: "empty key material"}
	}

	var raw any
	var err error
	if block, _ := pem.Decode(material); block != nil {
		raw, err = parsePEM(material, block, passphrase)
	} else {
		raw, err = parseBareDER(material, passphrase)
	}
	if err != nil {
		return nil, err
	}

	signer, ok := raw.(crypto.Signer)
	if !ok {
		return nil, &KeyError{Reason: fmt.Sprintf("key of type %T cannot sign", raw)}
	}
	return signer, nil
}

// ParseSignatureKey decodes material and binds it to alg.
// SigAlgUnknown selects the default algorithm for the key type.
func ParseSignatureKey(material, passphrase []byte, alg SigAlg) (*SignatureKey, error) {
	signer, err := ParsePrivateKey(material, passphrase)
	if err != nil {
		return nil, err
	}
	if alg == SigAlgUnknown {
		alg, err = DefaultAlg(signer)
		if err != nil {
			return nil, &KeyError{Reason: "no signature algorithm for key", Err: err}
		}
	}
	return &SignatureKey{Key: signer, Alg: alg}, nil
}

func parsePEM(material []byte, block *pem.Block, passphrase []byte) (any, error) {
	if block.Type == pemTypeEncryptedPKCS8 {
		if len(passphrase) == 0 {
			return nil, &KeyError{Reason: "passphrase required for encrypted key"}
		}
		key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, passphrase)
		if err != nil {
			return nil, &KeyError{Reason: "could not decrypt key", Err: err}
		}
		return key, nil
	}

	key, err := ssh.ParseRawPrivateKey(material)
	if err == nil {
		return key, nil
	}
	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return nil, &KeyError{Reason: "could not parse key", Err: err}
	}
	if len(passphrase) == 0 {
		return nil, &KeyError{Reason: "passphrase required for encrypted key", Err: err}
	}
	key, err = ssh.ParseRawPrivateKeyWithPassphrase(material, passphrase)
	if err != nil {
		return nil, &KeyError{Reason: "could not decrypt key", Err: err}
	}
	return key, nil
}

func parseBareDER(material, passphrase []byte) (any, error) {
	der, err := base64.StdEncoding.DecodeString(string(bytes.Join(bytes.Fields(material), nil)))
	if err != nil {
		return nil, &KeyError{Reason: "key material is neither PEM nor base64 DER", Err: err}
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	if len(passphrase) == 0 {
		return nil, &KeyError{Reason: "unrecognised DER private key"}
	}
	key, err := pkcs8.ParsePKCS8PrivateKey(der, passphrase)
	if err != nil {
		return nil, &KeyError{Reason: "could not decrypt key", Err: err}
	}
	return key, nil
}

// Keys pasted into environment variables often carry literal "\n" sequences.
func normalizeMaterial(material []byte) []byte {
	material = bytes.TrimSpace(material)
	if !bytes.Contains(material, []byte("\n")) && bytes.Contains(material, []byte(`\n`)) {
		material = bytes.ReplaceAll(material, []byte(`\n`), []byte("\n"))
	}
	return material
}
