package layers

import (
	"testing"
	"time"
)

func TestParseConfigOverridesDefaults(t *testing.T) {
	data := []byte(`
[pool]
bucket_cap = 4

[engine]
width = 512
height = 256
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Pool.BucketCap != 4 {
		t.Errorf("bucket_cap = %d, want 4", cfg.Pool.BucketCap)
	}
	if cfg.Engine.Width != 512 || cfg.Engine.Height != 256 {
		t.Errorf("engine size = %dx%d", cfg.Engine.Width, cfg.Engine.Height)
	}
	// Unmentioned keys keep their defaults.
	if cfg.History.Capacity != 50 {
		t.Errorf("history capacity = %d, want default 50", cfg.History.Capacity)
	}
	if cfg.Engine.ThrottleInterval != 16*time.Millisecond {
		t.Errorf("throttle = %v, want default 16ms", cfg.Engine.ThrottleInterval)
	}
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"bad syntax", "[pool\nbucket_cap = 1"},
		{"zero history", "[history]\ncapacity = 0"},
		{"negative engine width", "[engine]\nwidth = -1"},
		{"threshold above one", "[pool]\noptimize_threshold = 1.5"},
		{"zero max layers", "[store]\nmax_layers = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.toml)); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().validate(); err != nil {
		t.Errorf("defaults fail validation: %v", err)
	}
}
