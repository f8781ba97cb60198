package asset

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		id, err := Parse("0x5fbdb2315678afecb367f032d93f642f64180aa3", "0")
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), id.Collection)
		assert.Equal(t, "0", id.TokenIDString())
	})

	t.Run("LargeTokenID", func(t *testing.T) {
		max := "115792089237316195423570985008687907853269984665640564039457584007913129639935"
		id, err := Parse("0x5FbDB2315678afecb367f032d93F642f64180aa3", max)
		require.NoError(t, err)
		assert.Equal(t, max, id.TokenIDString())
	})

	t.Run("BadCollection", func(t *testing.T) {
		_, err := Parse("0x1234", "1")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid collection")
	})

	t.Run("BadTokenID", func(t *testing.T) {
		_, err := Parse("0x5FbDB2315678afecb367f032d93F642f64180aa3", "-1")
		assert.Error(t, err)

		_, err = Parse("0x5FbDB2315678afecb367f032d93F642f64180aa3", "")
		assert.Error(t, err)
	})
}

func TestIDEquality(t *testing.T) {
	collection := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	a := New(collection, 7)
	b, err := Parse("0x5fbdb2315678afecb367f032d93f642f64180aa3", "7")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, a.Key(), b.Key())

	m := map[ID]bool{a: true}
	assert.True(t, m[b])
	assert.False(t, m[New(collection, 8)])
}

func TestParseAccount(t *testing.T) {
	addr, err := ParseAccount(" 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 ")
	require.NoError(t, err)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", addr.Hex())

	_, err = ParseAccount("not-an-address")
	assert.Error(t, err)
}
