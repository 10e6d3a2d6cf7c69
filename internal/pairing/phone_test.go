package pairing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"plain digits", "15551234567", "15551234567", false},
		{"formatted", "+1 (555) 123-4567", "15551234567", false},
		{"fifteen digits", "123456789012345", "123456789012345", false},
		{"too short", "555123", "", true},
		{"too long", "1234567890123456", "", true},
		{"letters only", "not-a-number", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatPairCode(t *testing.T) {
	assert.Equal(t, "ABCD-EFGH", FormatPairCode("ABCDEFGH"))
	assert.Equal(t, "ABCD-EFGH", FormatPairCode("ABCD-EFGH"))
	assert.Equal(t, "ABCD-EF", FormatPairCode("ABCDEF"))
	assert.Equal(t, "ABC", FormatPairCode("ABC"))
	assert.Equal(t, "", FormatPairCode(""))
}
