package instance

import (
	"strings"
	"testing"
)

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv("ODDSVAULT_WORKER_ID", "cron-1")
	if got := GetID(); got != "cron-1" {
		t.Fatalf("expected cron-1, got %q", got)
	}
}

func TestGetIDFallsBackToHostAndPid(t *testing.T) {
	t.Setenv("ODDSVAULT_WORKER_ID", "")
	if got := GetID(); !strings.Contains(got, "-") {
		t.Fatalf("expected host-pid id, got %q", got)
	}
}
