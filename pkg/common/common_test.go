package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUUIDint64Unique(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := UUIDint64()
		assert.Positive(t, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestSessionID(t *testing.T) {
	a := SessionID("pg")
	b := SessionID("pg")
	assert.Regexp(t, `^pg[0-9a-f]{12}$`, a)
	assert.NotEqual(t, a, b)
}

func TestRandomAlnum(t *testing.T) {
	s := RandomAlnum(8)
	assert.Len(t, s, 8)
	assert.Regexp(t, `^[a-z0-9]+$`, s)
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "15551234567", DigitsOnly("+1 (555) 123-4567"))
	assert.Equal(t, "", DigitsOnly("abc"))
	assert.Equal(t, "42", DigitsOnly("4x2"))
}
