package crypto

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest_KnownVector(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(nil))
	assert.Len(t, Digest([]byte("payload")), 64)
}

func TestVerify(t *testing.T) {
	d := Digest([]byte("payload"))

	assert.True(t, Verify(d, d))
	assert.False(t, Verify(d, Digest([]byte("payload2"))))
	assert.False(t, Verify(d, d[:63]))
	assert.False(t, Verify("", d))
}

func TestVerifyEntry(t *testing.T) {
	e := goldenEntry()

	ok, computed, err := VerifyEntry(e)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, goldenDigest, computed)

	e.ToTotalScore = 81
	ok, computed, err = VerifyEntry(e)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEqual(t, goldenDigest, computed)
}

func TestVerifyEntry_NonFiniteTotalIsAnError(t *testing.T) {
	e := goldenEntry()
	e.ToTotalScore = math.NaN()

	var (
		ok  bool
		err error
	)
	require.NotPanics(t, func() { ok, _, err = VerifyEntry(e) })
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNonFiniteScore)
}
