package sig

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
)

// SignatureKey is a decoded private key ready to sign a single assertion.
type SignatureKey struct {
	Kid string
	Key crypto.Signer
	Alg SigAlg
}

func (k *SignatureKey) GetKid() string { return k.Kid }
func (k *SignatureKey) GetAlg() SigAlg { return k.Alg }

// Zero wipes the private scalars of the key. The key is unusable afterwards.
func (k *SignatureKey) Zero() {
	if k == nil || k.Key == nil {
		return
	}
	switch pk := k.Key.(type) {
	case *rsa.PrivateKey:
		if pk.D != nil {
			pk.D.SetInt64(0)
		}
		for _, p := range pk.Primes {
			if p != nil {
				p.SetInt64(0)
			}
		}
		pk.Precomputed = rsa.PrecomputedValues{}
	case *ecdsa.PrivateKey:
		if pk.D != nil {
			pk.D.SetInt64(0)
		}
	}
	k.Key = nil
}

// DefaultAlg picks the SHA-256 (or curve matching) algorithm for a key.
func DefaultAlg(key crypto.Signer) (SigAlg, error) {
	switch pk := key.(type) {
	case *rsa.PrivateKey:
		return SigAlgRS256, nil
	case *ecdsa.PrivateKey:
		switch pk.Curve {
		case elliptic.P256():
			return SigAlgES256, nil
		case elliptic.P384():
			return SigAlgES384, nil
		case elliptic.P521():
			return SigAlgES512, nil
		default:
			return SigAlgUnknown, fmt.Errorf("unsupported elliptic curve: %s", pk.Curve.Params().Name)
		}
	default:
		return SigAlgUnknown, fmt.Errorf("unsupported key type: %T", key)
	}
}
