package kv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_New_WithinLimit(t *testing.T) {
	k, err := NewKey(strings.Repeat("a", MaxKeyBytes))
	require.NoError(t, err)
	assert.Equal(t, MaxKeyBytes, len(k.String()))
}

func TestKey_New_TooLarge(t *testing.T) {
	_, err := NewKey(strings.Repeat("a", MaxKeyBytes+1))
	require.Error(t, err)

	var tooLarge *KeyTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, MaxKeyBytes, tooLarge.Max)
}

func TestKey_Equal(t *testing.T) {
	a, err := NewKey("same")
	require.NoError(t, err)
	b, err := NewKey("same")
	require.NoError(t, err)
	c, err := NewKey("different")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
