package conn

import (
	"testing"
	"time"
)

func TestAllowedBeforeRegistration(t *testing.T) {
	tests := []struct {
		cmd  string
		want bool
	}{
		{"NICK", true},
		{"USER", true},
		{"PING", true},
		{"QUIT", true},
		{"PRIVMSG", false},
		{"JOIN", false},
	}

	for _, tt := range tests {
		if got := AllowedBeforeRegistration(tt.cmd); got != tt.want {
			t.Errorf("AllowedBeforeRegistration(%q) = %v, want %v", tt.cmd, got, tt.want)
		}
	}
}

func TestMaybeAdvanceRequiresBoth(t *testing.T) {
	c := &Connection{}

	c.PendingNick = "alice"
	c.MaybeAdvance()
	if c.Phase == 2 {
		t.Fatal("should not be registered with only a nick")
	}

	c.PendingIdent = "alice"
	c.MaybeAdvance()
	if c.Phase != 1 {
		t.Fatalf("Phase = %v, want Partial (1) once both nick and ident are present", c.Phase)
	}
}

func TestCheckPing(t *testing.T) {
	c := &Connection{LastMessageAt: time.Now().Add(-40 * time.Second)}

	got := c.CheckPing(time.Now(), 30*time.Second, 90*time.Second)
	if got != PingSent {
		t.Fatalf("CheckPing() = %v, want PingSent", got)
	}

	c2 := &Connection{LastMessageAt: time.Now().Add(-100 * time.Second)}
	if got := c2.CheckPing(time.Now(), 30*time.Second, 90*time.Second); got != PingTimeout {
		t.Fatalf("CheckPing() = %v, want PingTimeout", got)
	}

	c3 := &Connection{LastMessageAt: time.Now()}
	if got := c3.CheckPing(time.Now(), 30*time.Second, 90*time.Second); got != PingNone {
		t.Fatalf("CheckPing() = %v, want PingNone", got)
	}
}
