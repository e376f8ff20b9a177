package entity

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ABC", "abc"},
		{"abc", "abc"},
		{"a12", "a12"},
		{"{}|^~", "{}|^^"},
		{"[]\\~", "{}|^"},
		{"-[\\]^_`{|}", "-{|}^_`{|}"},
	}

	for _, tt := range tests {
		if got := Canonicalize(tt.input); got != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNextUserID(t *testing.T) {
	tests := []struct {
		seq  uint64
		want UserID
	}{
		{0, "1ABAAAAAA"},
		{1, "1ABAAAAAB"},
		{35, "1ABAAAAA9"},
		{36, "1ABAAAABA"},
	}

	for _, tt := range tests {
		got, err := NextUserID("1AB", tt.seq)
		if err != nil {
			t.Fatalf("NextUserID(%d): unexpected error: %s", tt.seq, err)
		}
		if got != tt.want {
			t.Errorf("NextUserID(%d) = %s, want %s", tt.seq, got, tt.want)
		}
	}
}

func TestNextUserIDOverflow(t *testing.T) {
	if _, err := NextUserID("1AB", maxTS6Sequence); err == nil {
		t.Fatal("expected overflow error, got none")
	}
}

func TestChannelJoinPartInvariant(t *testing.T) {
	ch := NewChannel("#test")
	u := NewUser("1ABAAAAAA", "nick", "ident", "real name", Hostmasks{}, "1AB", true)

	m := ch.Join(u)
	u.Channels[ch.Name] = ch

	if _, ok := ch.Membership(u.UUID); !ok {
		t.Fatal("expected membership after Join")
	}
	if m.User != u {
		t.Fatal("membership user mismatch")
	}

	ch.Part(u.UUID)
	delete(u.Channels, ch.Name)

	if _, ok := ch.Membership(u.UUID); ok {
		t.Fatal("expected no membership after Part")
	}
	if !ch.ShouldDestroy() {
		t.Fatal("expected unregistered empty channel to be destroyable")
	}
}

func TestChannelRegisteredSurvivesEmpty(t *testing.T) {
	ch := NewChannel("#test")
	ch.Registered = true

	if ch.ShouldDestroy() {
		t.Fatal("registered empty channel should not be destroyed")
	}
}
