package cryptox

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkov/parley/internal/common"
)

func TestGenerateDHKeyPair_Agreement(t *testing.T) {
	alice, err := GenerateDHKeyPair(Group2048)
	require.NoError(t, err)
	bob, err := GenerateDHKeyPair(Group2048)
	require.NoError(t, err)

	s1, err := SharedSecret(alice, bob.Public)
	require.NoError(t, err)
	s2, err := SharedSecret(bob, alice.Public)
	require.NoError(t, err)

	assert.Equal(t, s1, s2, "both sides must agree on the secret")
	assert.Len(t, s1, 256, "secret is fixed-width for the group")
}

func TestGenerateDHKeyPair_UnknownGroup(t *testing.T) {
	_, err := GenerateDHKeyPair(Group(1024))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSharedSecret_RejectsDegenerateValues(t *testing.T) {
	local, err := GenerateDHKeyPair(Group2048)
	require.NoError(t, err)

	for _, peer := range []*big.Int{nil, big.NewInt(0), big.NewInt(1)} {
		_, err := SharedSecret(local, peer)
		assert.ErrorIs(t, err, common.ErrValidation)
	}
}

func TestGroupNames_CoverAllGroups(t *testing.T) {
	for _, g := range []Group{Group2048, Group3072, Group4096, Group6144, Group8192} {
		require.True(t, ValidGroup(g))
		assert.NotEmpty(t, GroupNames[g])
	}
}
