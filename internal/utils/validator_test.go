package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidScore(t *testing.T) {
	assert.True(t, IsValidScore(1))
	assert.True(t, IsValidScore(5))
	assert.False(t, IsValidScore(0))
	assert.False(t, IsValidScore(6))
	assert.False(t, IsValidScore(-1))
}

func TestSameWallet(t *testing.T) {
	assert.True(t, SameWallet("0xAbC", "0xabc"))
	assert.True(t, SameWallet("0xabc", "0xABC"))
	assert.False(t, SameWallet("0xabc", "0xdef"))
	assert.False(t, SameWallet("", ""))
	assert.False(t, SameWallet("", "0xabc"))
}
