package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "modern file url",
			url:  "https://store.example/file/abc123#def456",
			want: "SESS~abc123#def456",
		},
		{
			name: "legacy bang url",
			url:  "https://store.example/#!abc123!def456",
			want: "SESS~abc123#def456",
		},
		{
			name: "unknown shape falls through raw",
			url:  "https://store.example/d/xyz",
			want: "SESS~https://store.example/d/xyz",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive("SESS", tt.url))
		})
	}
}

func TestDeriveCustomTag(t *testing.T) {
	got := Derive("GIFT", "https://store.example/file/abc#key")
	assert.Equal(t, "GIFT~abc#key", got)
}

func TestParseRoundTrip(t *testing.T) {
	url := ShareURL("store.example", "abc123", "def456")
	loc := Derive("SESS", url)

	id, key, err := Parse("SESS", loc)
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	assert.Equal(t, "def456", key)

	// reconstructing the URL from the parsed parts is lossless
	assert.Equal(t, url, ShareURL("store.example", id, key))

	rebuilt, err := Reconstruct("SESS", "store.example", loc)
	require.NoError(t, err)
	assert.Equal(t, url, rebuilt)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		locator string
	}{
		{"wrong tag", "OTHER~abc#def"},
		{"missing separator", "SESS~abcdef"},
		{"empty key", "SESS~abc#"},
		{"empty id", "SESS~#def"},
		{"raw url fallback", "SESS~https://store.example/d/xyz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse("SESS", tt.locator)
			assert.ErrorIs(t, err, ErrInvalidLocator)
		})
	}
}
