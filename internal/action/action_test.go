package action

import "testing"

func TestRunStandardPriorityOrder(t *testing.T) {
	b := NewBus()

	var order []string
	b.Register("join", "mod-a", 1, func(args ...interface{}) interface{} {
		order = append(order, "a")
		return nil
	})
	b.Register("join", "mod-b", 10, func(args ...interface{}) interface{} {
		order = append(order, "b")
		return nil
	})
	b.Register("join", "mod-c", 5, func(args ...interface{}) interface{} {
		order = append(order, "c")
		return nil
	})

	b.RunStandard("join")

	want := []string{"b", "c", "a"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRunUntilTrueShortCircuits(t *testing.T) {
	b := NewBus()

	called := 0
	b.Register("check", "mod-a", 10, func(args ...interface{}) interface{} {
		called++
		return true
	})
	b.Register("check", "mod-b", 5, func(args ...interface{}) interface{} {
		called++
		return false
	})

	if !b.RunUntilTrue("check") {
		t.Fatal("expected true")
	}
	if called != 1 {
		t.Fatalf("called = %d, want 1 (should short-circuit)", called)
	}
}

func TestRunUntilValue(t *testing.T) {
	b := NewBus()

	b.Register("lookup", "mod-a", 10, func(args ...interface{}) interface{} {
		return nil
	})
	b.Register("lookup", "mod-b", 5, func(args ...interface{}) interface{} {
		return "found"
	})

	got := b.RunUntilValue("lookup")
	if got != "found" {
		t.Fatalf("RunUntilValue() = %v, want \"found\"", got)
	}
}

func TestUnregisterModule(t *testing.T) {
	b := NewBus()

	called := false
	b.Register("join", "mod-a", 1, func(args ...interface{}) interface{} {
		called = true
		return nil
	})

	b.UnregisterModule("mod-a")
	b.RunStandard("join")

	if called {
		t.Fatal("expected handler to be unregistered")
	}
}

func TestWithUsersFilter(t *testing.T) {
	b := NewBus()

	alice := "alice"
	bob := "bob"

	var calledAlice, calledGlobal bool
	b.RegisterScoped("notify", "mod-a", 1, func(args ...interface{}) interface{} {
		calledAlice = true
		return nil
	}, &Target{Users: []interface{}{alice}})

	b.Register("notify", "mod-b", 1, func(args ...interface{}) interface{} {
		calledGlobal = true
		return nil
	})

	b.RunStandardFiltered("notify", []Option{WithUsers(bob)})

	if calledAlice {
		t.Fatal("handler scoped to alice should not fire for bob")
	}
	if !calledGlobal {
		t.Fatal("unscoped handler should fire regardless of filter")
	}
}
