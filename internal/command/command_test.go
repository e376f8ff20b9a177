package command

import (
	"testing"

	"github.com/horgh/ironrelay/internal/entity"
)

type fakeUserCommand struct {
	name     string
	priority int
}

func (f *fakeUserCommand) Name() string                    { return f.name }
func (f *fakeUserCommand) Priority() int                    { return f.priority }
func (f *fakeUserCommand) ForRegistered() Registration       { return RequireRegistered }
func (f *fakeUserCommand) ParseParams(actor *entity.User, params []string, sink *ErrorSink) interface{} {
	return params
}
func (f *fakeUserCommand) AffectedUsers(data interface{}) []*entity.User       { return nil }
func (f *fakeUserCommand) AffectedChannels(data interface{}) []*entity.Channel { return nil }
func (f *fakeUserCommand) Execute(actor *entity.User, data interface{})       {}

func TestRegisterUserCommandPriorityOrder(t *testing.T) {
	r := NewRegistry()

	r.RegisterUserCommand("mod-a", &fakeUserCommand{name: "PRIVMSG", priority: 1})
	r.RegisterUserCommand("mod-b", &fakeUserCommand{name: "PRIVMSG", priority: 10})
	r.RegisterUserCommand("mod-c", &fakeUserCommand{name: "privmsg", priority: 5})

	list := r.UserCommands("PRIVMSG")
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}

	want := []int{10, 5, 1}
	for i, p := range want {
		if list[i].Priority() != p {
			t.Errorf("list[%d].Priority() = %d, want %d", i, list[i].Priority(), p)
		}
	}
}

func TestUnregisterModule(t *testing.T) {
	r := NewRegistry()
	r.RegisterUserCommand("mod-a", &fakeUserCommand{name: "NICK", priority: 1})
	r.RegisterUserCommand("mod-b", &fakeUserCommand{name: "NICK", priority: 2})

	r.UnregisterModule("mod-a")

	list := r.UserCommands("NICK")
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
}

func TestErrorSinkDeduplicates(t *testing.T) {
	var sent []string
	sink := NewErrorSink(func(numeric, text string) {
		sent = append(sent, numeric+" "+text)
	})

	sink.SendSingleError("461", "NICK :Not enough parameters")
	sink.SendSingleError("401", "nick :No such nick")

	if len(sent) != 1 {
		t.Fatalf("sent = %v, want exactly one error", sent)
	}
	if !sink.Reported() {
		t.Fatal("expected Reported() true after first error")
	}
}
