package assertion

import (
	"bytes"

	"github.com/axent-pl/jwtbearer/common/sig"
)

// PrivateKey holds undecoded key material and the optional passphrase protecting it.
// The material is decoded for each build and the decoded key is wiped after signing.
type PrivateKey struct {
	material   []byte
	passphrase []byte
	kid        string
}

// NewPrivateKey wraps material protected by passphrase. PEM armour is optional.
func NewPrivateKey(material, passphrase string) PrivateKey {
	return PrivateKey{material: []byte(material), passphrase: []byte(passphrase)}
}

func NewUnencryptedPrivateKey(material string) PrivateKey {
	return PrivateKey{material: []byte(material)}
}

// NewPrivateKeyFromBytes copies both slices.
func NewPrivateKeyFromBytes(material, passphrase []byte) PrivateKey {
	return PrivateKey{material: bytes.Clone(material), passphrase: bytes.Clone(passphrase)}
}

// WithKid returns a copy that stamps kid into the assertion header.
func (k PrivateKey) WithKid(kid string) PrivateKey {
	k.kid = kid
	return k
}

func (k PrivateKey) IsZero() bool { return len(k.material) == 0 }

func (k PrivateKey) signatureKey(alg sig.SigAlg) (*sig.SignatureKey, error) {
	key, err := sig.ParseSignatureKey(k.material, k.passphrase, alg)
	if err != nil {
		return nil, err
	}
	key.Kid = k.kid
	return key, nil
}
