package conv

import (
	"math"
	"testing"
)

func TestIntToUint32(t *testing.T) {
	tests := []struct {
		in   int
		want uint32
	}{
		{0, 0},
		{1, 1},
		{math.MaxUint16 + 1, math.MaxUint16 + 1},
	}
	for _, tt := range tests {
		if got := IntToUint32(tt.in); got != tt.want {
			t.Errorf("IntToUint32(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestIntToInt32(t *testing.T) {
	for _, n := range []int{math.MinInt32, -1, 0, 1, math.MaxInt32} {
		if got := IntToInt32(n); int(got) != n {
			t.Errorf("IntToInt32(%d) = %d", n, got)
		}
	}
}

func TestConversionPanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"negative uint32", func() { IntToUint32(-1) }},
		{"int32 overflow", func() { IntToInt32(math.MaxInt32 + 1) }},
		{"zero id", func() { PositiveToInt32(0) }},
		{"negative id", func() { PositiveToInt32(-3) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: expected panic", tt.name)
				}
			}()
			tt.fn()
		})
	}
}
