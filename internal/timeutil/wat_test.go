package timeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-01-05T09:15:00.000Z", "2024-01-05"},
		{"2024-01-05T23:30:00+01:00", "2024-01-05"},
		{"2024-01-05", "2024-01-05"},
		{"2024-01-05 10:00:00", "2024-01-05"},
	}
	for _, tt := range tests {
		got, err := CanonicalDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := CanonicalDate("05/01/2024")
	assert.Error(t, err)
}

func TestParseDateIsWAT(t *testing.T) {
	d, err := ParseDate("2024-01-05")
	require.NoError(t, err)

	_, offset := d.Zone()
	assert.Equal(t, 3600, offset)
	assert.Equal(t, "05 Jan 2024", d.Format(DisplayLayout))
}
