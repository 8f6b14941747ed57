package layers

import "testing"

func TestBlendModeNames(t *testing.T) {
	for m := BlendNormal; m <= BlendLuminosity; m++ {
		name := m.String()
		got, ok := ParseBlendMode(name)
		if !ok || got != m {
			t.Errorf("ParseBlendMode(%q) = %v, %v, want %v", name, got, ok, m)
		}
	}
}

func TestParseBlendModeUnknown(t *testing.T) {
	tests := []string{"", "plus-lighter", "NORMAL", "soft light"}
	for _, name := range tests {
		if m, ok := ParseBlendMode(name); ok || m != BlendNormal {
			t.Errorf("ParseBlendMode(%q) = %v, %v, want BlendNormal, false", name, m, ok)
		}
	}
}

func TestBlendModeStringOutOfRange(t *testing.T) {
	if got := BlendMode(200).String(); got != "normal" {
		t.Errorf("out-of-range name = %q", got)
	}
}
