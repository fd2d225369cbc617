package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CT*", "CT%"},
		{"?T", "_T"},
		{"100%", `100\%`},
		{"A_B*", `A\_B%`},
		{`x\y`, `x\\y`},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LikePattern(tt.in))
		})
	}
}

func TestIsUniversal(t *testing.T) {
	assert.True(t, IsUniversal(""))
	assert.True(t, IsUniversal("*"))
	assert.True(t, IsUniversal("**"))
	assert.False(t, IsUniversal("C*"))
	assert.False(t, IsUniversal("?"))
}
