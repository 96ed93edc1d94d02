package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundToTick(t *testing.T) {
	tests := []struct {
		name     string
		px, tick float64
		up, down float64
	}{
		{"on tick", 100.5, 0.05, 100.5, 100.5},
		{"between ticks", 100.52, 0.05, 100.55, 100.5},
		{"zero tick", 100.52, 0, 100.52, 100.52},
		{"whole rupee tick", 99.2, 1, 100, 99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.up, RoundUpToTick(tt.px, tt.tick), 1e-9)
			assert.InDelta(t, tt.down, RoundDownToTick(tt.px, tt.tick), 1e-9)
		})
	}
}

func TestWholeMinutes(t *testing.T) {
	assert.Equal(t, 11, WholeMinutes(11*time.Minute))
	assert.Equal(t, 11, WholeMinutes(11*time.Minute+20*time.Second))
	assert.Equal(t, 12, WholeMinutes(11*time.Minute+40*time.Second))
	assert.Equal(t, 1, WholeMinutes(10*time.Second))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "100.50", FormatPrice(100.5))
}

func TestScaleMinutes(t *testing.T) {
	assert.Equal(t, 14*time.Minute, ScaleMinutes(5, 2.8))
	assert.Equal(t, 42*time.Minute, ScaleMinutes(15, 2.8))
	assert.Equal(t, 90*time.Second, ScaleMinutes(1, 1.5))
}
