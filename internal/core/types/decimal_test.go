package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantityAdd(t *testing.T) {
	tests := []struct {
		name      string
		q, o      Quantity
		want      Quantity
		ok        bool
		saturated Quantity
	}{
		{"small", 3, 4, 7, true, 7},
		{"negative", 3, -5, -2, true, -2},
		{"max plus zero", math.MaxInt64, 0, math.MaxInt64, true, math.MaxInt64},
		{"overflow", math.MaxInt64, 1, 0, false, math.MaxInt64},
		{"max plus max", math.MaxInt64, math.MaxInt64, 0, false, math.MaxInt64},
		{"underflow", math.MinInt64, -1, 0, false, math.MinInt64},
		{"bounded sum", MaxQuantity, MaxQuantity, 2 * MaxQuantity, true, 2 * MaxQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.q.Add(tt.o)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.saturated, tt.q.SaturatingAdd(tt.o))
		})
	}
}
