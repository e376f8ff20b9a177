package modeset

import (
	"testing"

	"github.com/horgh/ironrelay/internal/entity"
)

func TestStatusOrderRankDescending(t *testing.T) {
	r := NewRegistry()

	if err := r.RegisterChannelMode(&Descriptor{Letter: 'v', Category: Status, Rank: 1, Symbol: '+'}); err != nil {
		t.Fatalf("register v: %s", err)
	}
	if err := r.RegisterChannelMode(&Descriptor{Letter: 'o', Category: Status, Rank: 10, Symbol: '@'}); err != nil {
		t.Fatalf("register o: %s", err)
	}
	if err := r.RegisterChannelMode(&Descriptor{Letter: 'h', Category: Status, Rank: 5, Symbol: '%'}); err != nil {
		t.Fatalf("register h: %s", err)
	}

	order := r.StatusOrder()
	want := []byte{'o', 'h', 'v'}
	if string(order) != string(want) {
		t.Fatalf("StatusOrder() = %q, want %q", order, want)
	}
}

func TestRegisterChannelModeDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterChannelMode(&Descriptor{Letter: 'b', Category: List}); err != nil {
		t.Fatalf("first register: %s", err)
	}
	if err := r.RegisterChannelMode(&Descriptor{Letter: 'b', Category: List}); err == nil {
		t.Fatal("expected error registering duplicate letter")
	}
}

type fakeActions struct {
	result bool
}

func (f *fakeActions) RunUntilTrue(name string, args ...interface{}) bool {
	return f.result
}

func newTestUser(nick, ident, host, ip string) *entity.User {
	return entity.NewUser("1ABAAAAAA", nick, ident, "real name",
		entity.Hostmasks{Display: host, Real: host, IP: ip}, "1AB", true)
}

func TestMatchHostmask(t *testing.T) {
	registry := NewRegistry()
	bm := NewBanMode(registry, &fakeActions{})

	u := newTestUser("nick", "ident", "some.host.example.org", "1.2.3.4")

	tests := []struct {
		mask string
		want bool
	}{
		{"*!*@*.example.org", true},
		{"*!*@1.2.3.4", true},
		{"nick!*@*", true},
		{"other!*@*", false},
		{"*!ident@*.EXAMPLE.ORG", true},
	}

	for _, tt := range tests {
		if got := bm.MatchHostmask(u, tt.mask); got != tt.want {
			t.Errorf("MatchHostmask(%q) = %v, want %v", tt.mask, got, tt.want)
		}
	}
}

func TestCheckJoinPermission(t *testing.T) {
	registry := NewRegistry()
	bm := NewBanMode(registry, &fakeActions{})

	ch := entity.NewChannel("#test")
	ch.AddListEntry('b', entity.ListModeEntry{Param: "*!*@banned.example.org"})

	banned := newTestUser("nick", "ident", "banned.example.org", "1.2.3.4")
	allowed := newTestUser("other", "ident", "fine.example.org", "5.6.7.8")

	if !bm.CheckJoinPermission(ch, banned) {
		t.Error("expected banned user to be denied")
	}
	if bm.CheckJoinPermission(ch, allowed) {
		t.Error("expected unbanned user to be allowed")
	}
}

func TestPopulateBanCacheAndAutoStatus(t *testing.T) {
	registry := NewRegistry()
	if err := registry.RegisterChannelMode(&Descriptor{Letter: 'o', Category: Status, Rank: 10, Symbol: '@'}); err != nil {
		t.Fatalf("register o: %s", err)
	}

	bm := NewBanMode(registry, &fakeActions{})

	ch := entity.NewChannel("#test")
	ch.AddListEntry('b', entity.ListModeEntry{Param: "o;*!*@trusted.example.org"})

	u := newTestUser("nick", "ident", "trusted.example.org", "1.2.3.4")
	m := ch.Join(u)

	bm.PopulateBanCache(ch, m)

	if !m.Bans["o"] {
		t.Fatal("expected action-extban 'o' to be cached for matching user")
	}

	autoStatus := bm.AutoStatus(m)
	if len(autoStatus) != 1 || autoStatus[0] != 'o' {
		t.Fatalf("AutoStatus() = %q, want [o]", autoStatus)
	}
}

func TestCheckSetAppendsDefaultHostmask(t *testing.T) {
	registry := NewRegistry()
	bm := NewBanMode(registry, &fakeActions{})

	ch := entity.NewChannel("#test")

	got := bm.CheckSet(ch, "baduser,other!*@host.example.org")
	want := []string{"baduser!*@*", "other!*@host.example.org"}

	if len(got) != len(want) {
		t.Fatalf("CheckSet() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CheckSet()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
