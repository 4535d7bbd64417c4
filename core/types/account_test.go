package types

import (
	"go/format"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccountSourceIsFormatted(t *testing.T) {
	src, err := os.ReadFile("account.go")
	require.NoError(t, err)
	formatted, err := format.Source(src)
	require.NoError(t, err)
	require.Equal(t, string(formatted), string(src))
}

func TestAccountCloneCopiesData(t *testing.T) {
	acc := &Account{Lamports: 7, Owner: Pubkey{1}, Space: 4, Data: []byte{1, 2}}
	clone := acc.Clone()
	clone.Data[0] = 9
	require.Equal(t, byte(1), acc.Data[0])
	require.Equal(t, acc.Space, clone.Space)
	require.False(t, acc.IsUninitialized())
}
