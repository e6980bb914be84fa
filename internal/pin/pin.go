// Package pin derives the short verification code two new contacts read to
// each other out loud. Both sides feed the same shared secret and
// transcript salt in, so honest peers see the same code and color while a
// relay in the middle cannot steer the result without breaking the
// Diffie-Hellman exchange.
package pin

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/dmarkov/parley/internal/common"
)

// CodeLen is the number of characters in the spoken code.
const CodeLen = 6

// codeAlphabet avoids lowercase so the code survives being read aloud or
// scribbled down.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Palette is the fixed color set; the index is derived from the hash so
// both peers see the same swatch next to the code.
var Palette = []string{
	"red", "green", "blue", "yellow",
	"magenta", "cyan", "orange", "white",
}

const pinTag = "parley/pin/v1"

// Pin is the verification artifact shown to the human.
type Pin struct {
	Code     string // CodeLen uppercase alphanumeric characters
	Color    string // palette entry displayed next to the code
	FullHash string // hex of the full digest, for byte-exact comparison
}

// Derive computes the verification pin from the DH shared secret and the
// handshake transcript salt. Deterministic: the same inputs yield the
// same pin on both peers, byte for byte.
func Derive(secret, sharedSalt []byte) (*Pin, error) {
	if len(secret) == 0 || len(sharedSalt) == 0 {
		return nil, fmt.Errorf("%w: pin derivation needs both secret and salt", common.ErrValidation)
	}

	sum := sha256.New()
	sum.Write([]byte(pinTag))
	for _, field := range [][]byte{secret, sharedSalt} {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(field)))
		sum.Write(n[:])
		sum.Write(field)
	}
	digest := sum.Sum(nil)

	code := make([]byte, CodeLen)
	for i := range code {
		code[i] = codeAlphabet[int(digest[i])%len(codeAlphabet)]
	}

	return &Pin{
		Code:     string(code),
		Color:    Palette[int(digest[CodeLen])%len(Palette)],
		FullHash: hex.EncodeToString(digest),
	}, nil
}
