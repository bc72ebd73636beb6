package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		region string
		want   string
	}{
		{"national US number", "(650) 253-0000", "US", "+16502530000"},
		{"international overrides region", "+44 20 7031 3000", "US", "+442070313000"},
		{"default region", "650-253-0000", "", "+16502530000"},
		{"blank", "   ", "US", ""},
		{"garbage", "call me maybe", "US", ""},
		{"too short", "12345", "US", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeE164(tt.input, tt.region))
		})
	}
}
