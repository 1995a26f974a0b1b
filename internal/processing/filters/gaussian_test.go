package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKernelSize(t *testing.T) {
	tests := []struct {
		sigma float64
		want  int
	}{
		{0, 1},
		{0.5, 5},
		{1, 7},
		{1.5, 9},
		{2, 13},
		{2.5, 17},
		{15, 91},
	}
	for _, tt := range tests {
		got := KernelSize(tt.sigma)
		assert.Equal(t, tt.want, got, "sigma=%v", tt.sigma)
		assert.Equal(t, 1, got%2, "kernel must be odd")
	}
}
