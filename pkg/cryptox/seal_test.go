package cryptox_test

import (
	"testing"

	"github.com/aussiebroadwan/rolechat/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	t.Parallel()

	salt, err := cryptox.NewSalt()
	require.NoError(t, err)
	require.Len(t, salt, cryptox.SaltLength)

	sealer, err := cryptox.NewSealer("correct horse battery staple", salt)
	require.NoError(t, err)

	sealed, err := sealer.Seal("rt1")
	require.NoError(t, err)
	require.NotContains(t, sealed, "rt1")

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "rt1", opened)

	// Fresh nonce per call
	again, err := sealer.Seal("rt1")
	require.NoError(t, err)
	require.NotEqual(t, sealed, again)
}

func TestOpen_WrongPassphrase(t *testing.T) {
	t.Parallel()

	salt, err := cryptox.NewSalt()
	require.NoError(t, err)

	a, err := cryptox.NewSealer("alpha", salt)
	require.NoError(t, err)
	b, err := cryptox.NewSealer("bravo", salt)
	require.NoError(t, err)

	sealed, err := a.Seal("secret")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	require.ErrorIs(t, err, cryptox.ErrUnsealFailed)
}

func TestOpen_Garbage(t *testing.T) {
	t.Parallel()

	salt, err := cryptox.NewSalt()
	require.NoError(t, err)
	sealer, err := cryptox.NewSealer("alpha", salt)
	require.NoError(t, err)

	for _, input := range []string{"", "!!not base64!!", "c2hvcnQ"} {
		_, err := sealer.Open(input)
		require.ErrorIs(t, err, cryptox.ErrUnsealFailed, input)
	}
}

func TestNewSealer_Validation(t *testing.T) {
	t.Parallel()

	_, err := cryptox.NewSealer("", make([]byte, cryptox.SaltLength))
	require.Error(t, err)

	_, err = cryptox.NewSealer("alpha", []byte("short"))
	require.Error(t, err)
}
