package cryptox

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"github.com/dmarkov/parley/internal/common"
)

// IdentityKeyBits sizes the long-lived RSA identity keypair. 4096-bit keys
// export to the 512-byte-plus-header PKIX blobs the wire validators expect.
const IdentityKeyBits = 4096

// GenerateIdentityKey creates a new RSA identity keypair. This runs
// synchronously on the calling flow; it is a rare one-shot operation, not a
// per-message cost.
func GenerateIdentityKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, IdentityKeyBits)
}

// ExportPublicKey serializes an RSA public key as PKIX DER, the form
// carried in invitation messages.
func ExportPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

// ImportPublicKey parses a PKIX DER blob received from a peer. Anything
// that is not an RSA public key is a validation error.
func ImportPublicKey(der []byte) (*rsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: bad public key encoding", common.ErrValidation)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is not RSA", common.ErrValidation)
	}
	return pub, nil
}

// ModulusFingerprint returns a short public fingerprint of the RSA modulus,
// suitable for display next to an account name.
func ModulusFingerprint(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return hex.EncodeToString(sum[:8])
}

// Sign produces an RSA-PSS signature over sha256(data) with the identity
// key. Used to bind ephemeral DH material to the long-lived identity.
func Sign(priv *rsa.PrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	return rsa.SignPSS(rand.Reader, priv, crypto.SHA256, digest[:], nil)
}

// Verify checks an RSA-PSS signature made by Sign.
func Verify(pub *rsa.PublicKey, data, sig []byte) error {
	digest := sha256.Sum256(data)
	if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, nil); err != nil {
		return fmt.Errorf("%w: signature check failed", common.ErrValidation)
	}
	return nil
}
