package migrate

import "testing"

func TestDirOrDefault(t *testing.T) {
	if got := dirOrDefault(""); got != "db/migrations" {
		t.Errorf("dirOrDefault(\"\") = %q, want db/migrations", got)
	}
	if got := dirOrDefault("/etc/gradex/migrations"); got != "/etc/gradex/migrations" {
		t.Errorf("dirOrDefault(custom) = %q", got)
	}
}
