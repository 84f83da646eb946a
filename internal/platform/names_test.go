package platform

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"orca", "Orca"},
		{"RAYDIUM", "Raydium"},
		{"meteora_dlmm", "Meteora DLMM"},
		{"goosefx", "GooseFX"},
		{"unknowndex", "Unknowndex"},
		{"phoenix swap", "Phoenix Swap"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.label); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestJoinDisplayNames(t *testing.T) {
	got := JoinDisplayNames([]string{"orca", "saber"})
	if got != "Orca, Saber" {
		t.Errorf("JoinDisplayNames = %q", got)
	}
}
