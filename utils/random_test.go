package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode_LengthAndCharset(t *testing.T) {
	code, err := GenerateCode(3)
	require.NoError(t, err)

	assert.Len(t, code, 6) // hex doubles the byte count
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestGenerateBookingReference_Format(t *testing.T) {
	ref, err := GenerateBookingReference()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref, "BK"))
	assert.Greater(t, len(ref), 12)
}

func TestGenerateBookingReference_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		ref, err := GenerateBookingReference()
		require.NoError(t, err)
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestGenerateTransactionID_Format(t *testing.T) {
	txn, err := GenerateTransactionID()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(txn, "TXN"))
}
