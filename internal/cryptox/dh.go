package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/dmarkov/parley/internal/common"
)

// Group selects a finite-field Diffie-Hellman group strength. Values are
// the RFC 3526 MODP groups; all use generator 2.
type Group int

const (
	Group2048 Group = 2048
	Group3072 Group = 3072
	Group4096 Group = 4096
	Group6144 Group = 6144
	Group8192 Group = 8192

	// DefaultGroup balances agreement latency against strength for an
	// interactive handshake.
	DefaultGroup = Group3072
)

// GroupNames maps group strengths to the human-friendly labels shown in
// the strength selector.
var GroupNames = map[Group]string{
	Group2048: "normal (2048 bit)",
	Group3072: "strong (3072 bit)",
	Group4096: "very strong (4096 bit)",
	Group6144: "paranoid (6144 bit)",
	Group8192: "tinfoil (8192 bit)",
}

// GroupByName resolves a strength selector to a group. It accepts either
// the full label from GroupNames or just its leading word ("strong").
func GroupByName(name string) (Group, bool) {
	for g, label := range GroupNames {
		if name == label || name == strings.SplitN(label, " ", 2)[0] {
			return g, true
		}
	}
	return 0, false
}

// DHKeyPair is an ephemeral Diffie-Hellman keypair bound to one group.
type DHKeyPair struct {
	Group   Group
	Private *big.Int
	Public  *big.Int
}

// RFC 3526 MODP primes, hex. Generator is 2 for every group.
const modp2048 = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74" +
	"020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437" +
	"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF05" +
	"98DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB" +
	"9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718" +
	"3995497CEA956AE515D2261898FA051015728E5A8AACAA68FFFFFFFFFFFFFFFF"

const modp3072 = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74" +
	"020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437" +
	"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF05" +
	"98DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB" +
	"9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718" +
	"3995497CEA956AE515D2261898FA051015728E5A8AAAC42DAD33170D04507A33" +
	"A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7" +
	"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864" +
	"D87602733EC86A64521F2B18177B200CBBE117577A615D6C770988C0BAD946E2" +
	"08E24FA074E5AB3143DB5BFCE0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF"

const modp4096 = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74" +
	"020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437" +
	"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF05" +
	"98DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB" +
	"9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718" +
	"3995497CEA956AE515D2261898FA051015728E5A8AAAC42DAD33170D04507A33" +
	"A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7" +
	"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864" +
	"D87602733EC86A64521F2B18177B200CBBE117577A615D6C770988C0BAD946E2" +
	"08E24FA074E5AB3143DB5BFCE0FD108E4B82D120A92108011A723C12A787E6D7" +
	"88719A10BDBA5B2699C327186AF4E23C1A946834B6150BDA2583E9CA2AD44CE8" +
	"DBBBC2DB04DE8EF92E8EFC141FBECAA6287C59474E6BC05D99B2964FA090C3A2" +
	"233BA186515BE7ED1F612970CEE2D7AFB81BDD762170481CD0069127D5B05AA9" +
	"93B4EA988D8FDDC186FFB7DC90A6C08F4DF435C934063199FFFFFFFFFFFFFFFF"

const modp6144 = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74" +
	"020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437" +
	"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF05" +
	"98DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB" +
	"9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718" +
	"3995497CEA956AE515D2261898FA051015728E5A8AAAC42DAD33170D04507A33" +
	"A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7" +
	"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864" +
	"D87602733EC86A64521F2B18177B200CBBE117577A615D6C770988C0BAD946E2" +
	"08E24FA074E5AB3143DB5BFCE0FD108E4B82D120A92108011A723C12A787E6D7" +
	"88719A10BDBA5B2699C327186AF4E23C1A946834B6150BDA2583E9CA2AD44CE8" +
	"DBBBC2DB04DE8EF92E8EFC141FBECAA6287C59474E6BC05D99B2964FA090C3A2" +
	"233BA186515BE7ED1F612970CEE2D7AFB81BDD762170481CD0069127D5B05AA9" +
	"93B4EA988D8FDDC186FFB7DC90A6C08F4DF435C93402849236C3FAB4D27C7026" +
	"C1D4DCB2602646DEC9751E763DBA37BDF8FF9406AD9E530EE5DB382F413001AE" +
	"B06A53ED9027D831179727B0865A8918DA3EDBEBCF9B14ED44CE6CBACED4BB1B" +
	"DB7F1447E6CC254B332051512BD7AF426FB8F401378CD2BF5983CA01C64B92EC" +
	"F032EA15D1721D03F482D7CE6E74FEF6D55E702F46980C82B5A84031900B1C9E" +
	"59E7C97FBEC7E8F323A97A7E36CC88BE0F1D45B7FF585AC54BD407B22B4154AA" +
	"CC8F6D7EBF48E1D814CC5ED20F8037E0A79715EEF29BE32806A1D58BB7C5DA76" +
	"F550AA3D8A1FBFF0EB19CCB1A313D55CDA56C9EC2EF29632387FE8D76E3C0468" +
	"043E8F663F4860EE12BF2D5B0B7474D6E694F91E6DCC4024FFFFFFFFFFFFFFFF"

const modp8192 = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74" +
	"020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437" +
	"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF05" +
	"98DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB" +
	"9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718" +
	"3995497CEA956AE515D2261898FA051015728E5A8AAAC42DAD33170D04507A33" +
	"A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7" +
	"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864" +
	"D87602733EC86A64521F2B18177B200CBBE117577A615D6C770988C0BAD946E2" +
	"08E24FA074E5AB3143DB5BFCE0FD108E4B82D120A92108011A723C12A787E6D7" +
	"88719A10BDBA5B2699C327186AF4E23C1A946834B6150BDA2583E9CA2AD44CE8" +
	"DBBBC2DB04DE8EF92E8EFC141FBECAA6287C59474E6BC05D99B2964FA090C3A2" +
	"233BA186515BE7ED1F612970CEE2D7AFB81BDD762170481CD0069127D5B05AA9" +
	"93B4EA988D8FDDC186FFB7DC90A6C08F4DF435C93402849236C3FAB4D27C7026" +
	"C1D4DCB2602646DEC9751E763DBA37BDF8FF9406AD9E530EE5DB382F413001AE" +
	"B06A53ED9027D831179727B0865A8918DA3EDBEBCF9B14ED44CE6CBACED4BB1B" +
	"DB7F1447E6CC254B332051512BD7AF426FB8F401378CD2BF5983CA01C64B92EC" +
	"F032EA15D1721D03F482D7CE6E74FEF6D55E702F46980C82B5A84031900B1C9E" +
	"59E7C97FBEC7E8F323A97A7E36CC88BE0F1D45B7FF585AC54BD407B22B4154AA" +
	"CC8F6D7EBF48E1D814CC5ED20F8037E0A79715EEF29BE32806A1D58BB7C5DA76" +
	"F550AA3D8A1FBFF0EB19CCB1A313D55CDA56C9EC2EF29632387FE8D76E3C0468" +
	"043E8F663F4860EE12BF2D5B0B7474D6E694F91E6DBE115974A3926F12FEE5E4" +
	"38777CB6A932DF8CD8BEC4D073B931BA3BC832B68D9DD300741FA7BF8AFC47ED" +
	"2576F6936BA424663AAB639C5AE4F5683423B4742BF1C978238F16CBE39D652D" +
	"E3FDB8BEFC848AD922222E04A4037C0713EB57A81A23F0C73473FC646CEA306B" +
	"4BCBC8862F8385DDFA9D4B7FA2C087E879683303ED5BDD3A062B3CF5B3A278A6" +
	"6D2A13F83F44F82DDF310EE074AB6A364597E899A0255DC164F31CC50846851D" +
	"F9AB48195DED7EA1B1D510BD7EE74D73FAF36BC31ECFA268359046F4EB879F92" +
	"4009438B481C6CD7889A002ED5EE382BC9190DA6FC026E479558E4475677E9AA" +
	"9E3050E2765694DFC81F56E880B96E7160C980DD98EDD3DFFFFFFFFFFFFFFFFF"

var dhGenerator = big.NewInt(2)

var dhPrimes = map[Group]*big.Int{}

func init() {
	for g, hexP := range map[Group]string{
		Group2048: modp2048,
		Group3072: modp3072,
		Group4096: modp4096,
		Group6144: modp6144,
		Group8192: modp8192,
	} {
		p, ok := new(big.Int).SetString(hexP, 16)
		if !ok {
			panic("cryptox: bad MODP prime constant")
		}
		dhPrimes[g] = p
	}
}

// ValidGroup reports whether g names a supported group strength.
func ValidGroup(g Group) bool {
	_, ok := dhPrimes[g]
	return ok
}

// GenerateDHKeyPair creates an ephemeral keypair in the chosen group. The
// private exponent is twice the symmetric strength of the group per RFC
// 3526 recommendations.
func GenerateDHKeyPair(g Group) (*DHKeyPair, error) {
	p, ok := dhPrimes[g]
	if !ok {
		return nil, fmt.Errorf("%w: unknown DH group %d", common.ErrValidation, g)
	}

	bits := exponentBits(g)
	for {
		buf := make([]byte, bits/8)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		priv := new(big.Int).SetBytes(buf)
		if priv.Sign() == 0 {
			continue
		}
		pub := new(big.Int).Exp(dhGenerator, priv, p)
		// 1 and p-1 generate trivial subgroups.
		if pub.Cmp(big.NewInt(1)) <= 0 {
			continue
		}
		return &DHKeyPair{Group: g, Private: priv, Public: pub}, nil
	}
}

// SharedSecret computes the DH shared secret from the local private key and
// the peer public value. The result is the only secret that is never
// transmitted. Peer values outside (1, p-1) are rejected.
func SharedSecret(local *DHKeyPair, peerPub *big.Int) ([]byte, error) {
	p, ok := dhPrimes[local.Group]
	if !ok {
		return nil, fmt.Errorf("%w: unknown DH group %d", common.ErrValidation, local.Group)
	}

	pMinus1 := new(big.Int).Sub(p, big.NewInt(1))
	if peerPub == nil || peerPub.Cmp(big.NewInt(1)) <= 0 || peerPub.Cmp(pMinus1) >= 0 {
		return nil, fmt.Errorf("%w: peer DH public value out of range", common.ErrValidation)
	}

	secret := new(big.Int).Exp(peerPub, local.Private, p)
	return secret.FillBytes(make([]byte, len(p.Bytes()))), nil
}

// exponentBits follows RFC 3526 section 8: exponent size at least twice
// the estimated symmetric strength.
func exponentBits(g Group) int {
	switch g {
	case Group2048:
		return 224
	case Group3072:
		return 256
	case Group4096:
		return 304
	case Group6144:
		return 352
	default:
		return 400
	}
}
