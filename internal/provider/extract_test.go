package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"34:12", 34.2, true},
		{"0:30", 0.5, true},
		{"34.2", 34.2, true},
		{" 12 ", 12, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12:75", 0, false},
		{"x:10", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMinutes(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNilEmpty(t *testing.T) {
	assert.Nil(t, NilEmpty(""))
	assert.Equal(t, "G", NilEmpty("G"))
}
