package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	plain := []byte("credential bundle bytes")
	sealed, keyHex, err := Seal(plain)
	require.NoError(t, err)
	assert.Len(t, keyHex, KeySize*2)
	assert.Greater(t, len(sealed), len(plain))

	got, err := Open(sealed, keyHex)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestOpenRejectsTamper(t *testing.T) {
	sealed, keyHex, err := Seal([]byte("payload"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = Open(sealed, keyHex)
	assert.Error(t, err)
}

func TestOpenRejectsWrongKey(t *testing.T) {
	sealed, _, err := Seal([]byte("payload"))
	require.NoError(t, err)

	_, otherKey, err := Seal([]byte("x"))
	require.NoError(t, err)
	_, err = Open(sealed, otherKey)
	assert.Error(t, err)
}

func TestSealFreshKeyPerCall(t *testing.T) {
	_, k1, err := Seal([]byte("same"))
	require.NoError(t, err)
	_, k2, err := Seal([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}
