package wire

import (
	"reflect"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		input   string
		want    Message
		wantErr bool
	}{
		{
			input: "PING",
			want:  Message{Command: "PING"},
		},
		{
			input: "PING :hello there\r\n",
			want:  Message{Command: "PING", Params: []string{"hello there"}},
		},
		{
			input: ":nick!user@host PRIVMSG #chan :hi there\n",
			want: Message{
				Prefix:  "nick!user@host",
				Command: "PRIVMSG",
				Params:  []string{"#chan", "hi there"},
			},
		},
		{
			input: "MODE #chan +b *!*@host",
			want: Message{
				Command: "MODE",
				Params:  []string{"#chan", "+b", "*!*@host"},
			},
		},
		{
			input: "@id=123;account=foo :nick!user@host PRIVMSG #chan :hi",
			want: Message{
				Tags:    map[string]string{"id": "123", "account": "foo"},
				Prefix:  "nick!user@host",
				Command: "PRIVMSG",
				Params:  []string{"#chan", "hi"},
			},
		},
		{
			input:   "",
			wantErr: true,
		},
		{
			input:   ":onlyprefix",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		got, err := Decode(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Decode(%q): expected error, got none", tt.input)
			}
			continue
		}

		if err != nil {
			t.Errorf("Decode(%q): unexpected error: %s", tt.input, err)
			continue
		}

		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Decode(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		input Message
		want  string
	}{
		{
			input: Message{Command: "PING"},
			want:  "PING",
		},
		{
			input: Message{Command: "PING", Params: []string{"hi there"}},
			want:  "PING :hi there",
		},
		{
			input: Message{
				Prefix:  "nick!user@host",
				Command: "PRIVMSG",
				Params:  []string{"#chan", "hi there"},
			},
			want: ":nick!user@host PRIVMSG #chan :hi there",
		},
		{
			input: Message{
				Command: "MODE",
				Params:  []string{"#chan", "+b", "*!*@host"},
			},
			want: "MODE #chan +b *!*@host",
		},
		{
			input: Message{
				Command: "PRIVMSG",
				Params:  []string{"#chan", ""},
			},
			want: "PRIVMSG #chan :",
		},
	}

	for _, tt := range tests {
		got, err := tt.input.Encode()
		if err != nil {
			t.Errorf("Encode(%+v): unexpected error: %s", tt.input, err)
			continue
		}

		if got != tt.want {
			t.Errorf("Encode(%+v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEncodeTruncation(t *testing.T) {
	long := make([]byte, MaxLineLength+100)
	for i := range long {
		long[i] = 'a'
	}

	m := Message{Command: "PRIVMSG", Params: []string{"#chan", string(long)}}

	got, err := m.Encode()
	if err != ErrTruncated {
		t.Fatalf("Encode() error = %v, want ErrTruncated", err)
	}

	if len(got) != MaxLineLength {
		t.Errorf("Encode() len = %d, want %d", len(got), MaxLineLength)
	}
}

func TestSourceNick(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "nick!user@host", want: "nick"},
		{prefix: "irc.example.org", want: ""},
		{prefix: "", want: ""},
	}

	for _, tt := range tests {
		m := Message{Prefix: tt.prefix}
		if got := m.SourceNick(); got != tt.want {
			t.Errorf("Message{Prefix: %q}.SourceNick() = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestRoundTripTags(t *testing.T) {
	m := Message{
		Tags:    map[string]string{"label": "value with space;and semi"},
		Command: "PRIVMSG",
		Params:  []string{"#chan", "hi"},
	}

	encoded, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %s", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode(%q) error: %s", encoded, err)
	}

	if !reflect.DeepEqual(decoded.Tags, m.Tags) {
		t.Errorf("round trip tags = %v, want %v", decoded.Tags, m.Tags)
	}
}
