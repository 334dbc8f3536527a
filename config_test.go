package japefsm

import (
	"errors"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"zero states", DefaultConfig().WithMaxStates(0), true},
		{"negative depth", DefaultConfig().WithMaxRecursionDepth(-1), true},
		{"custom", DefaultConfig().WithMaxStates(10).WithMaxRecursionDepth(5).WithMinimize(false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_WithIsCopy(t *testing.T) {
	base := DefaultConfig()
	_ = base.WithMaxStates(1).WithMinimize(false)
	if base.MaxStates != 100_000 || !base.Minimize {
		t.Error("With* setters must not modify the receiver")
	}
}
