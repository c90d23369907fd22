package version

import "testing"

func TestShort(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"version only", Info{Version: "1.2.0"}, "1.2.0"},
		{"with commit", Info{Version: "1.2.0", GitCommit: "abc1234"}, "1.2.0-abc1234"},
		{"dirty build", Info{Version: "dev", GitCommit: "abc1234", Dirty: true}, "dev-abc1234-dirty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Short(); got != tt.want {
				t.Errorf("Short() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetUsesLdflagsVersion(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("expected %q, got %q", Version, info.Version)
	}
}
