package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowpost/slowpost/internal/util"
)

func TestRandomDigits(t *testing.T) {
	pin, err := util.RandomDigits(6)
	require.NoError(t, err)
	require.Len(t, pin, 6)
	for _, c := range pin {
		assert.True(t, c >= '0' && c <= '9', "unexpected character %q", c)
	}
}

func TestRandomToken(t *testing.T) {
	a, err := util.RandomToken(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := util.RandomToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
