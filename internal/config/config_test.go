package config

import "testing"

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw     string
		want    Endpoint
		wantErr bool
	}{
		{
			raw:  "tcp:6667",
			want: Endpoint{Proto: "tcp", Port: "6667", Params: map[string]string{}},
		},
		{
			raw: "ssl:6697:certKey=/etc/ssl/key.pem",
			want: Endpoint{
				Proto:  "ssl",
				Port:   "6697",
				Params: map[string]string{"certKey": "/etc/ssl/key.pem"},
			},
		},
		{
			raw: `ssl:6697:certKey=C\:/certs/key.pem`,
			want: Endpoint{
				Proto:  "ssl",
				Port:   "6697",
				Params: map[string]string{"certKey": "C:/certs/key.pem"},
			},
		},
		{
			raw:     "quic:6667",
			wantErr: true,
		},
		{
			raw:     "tcp",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		got, err := ParseEndpoint(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseEndpoint(%q): expected error, got none", tt.raw)
			}
			continue
		}

		if err != nil {
			t.Errorf("ParseEndpoint(%q): unexpected error: %s", tt.raw, err)
			continue
		}

		if got.Proto != tt.want.Proto || got.Port != tt.want.Port {
			t.Errorf("ParseEndpoint(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
		for k, v := range tt.want.Params {
			if got.Params[k] != v {
				t.Errorf("ParseEndpoint(%q).Params[%q] = %q, want %q", tt.raw, k, got.Params[k], v)
			}
		}
	}
}

func TestDocumentFromFlatMap(t *testing.T) {
	raw := map[string]string{
		"name":          "test.example.org",
		"hostname":      "irc.example.org",
		"bind_client":   "tcp:6667",
		"kick_length":   "200",
		"ping_interval": "45",
	}

	doc, err := DocumentFromFlatMap(raw)
	if err != nil {
		t.Fatalf("DocumentFromFlatMap() error: %s", err)
	}

	if doc.Name != "test.example.org" {
		t.Errorf("Name = %q, want test.example.org", doc.Name)
	}
	if doc.KickLength != 200 {
		t.Errorf("KickLength = %d, want 200", doc.KickLength)
	}
	if doc.PingInterval != 45 {
		t.Errorf("PingInterval = %d, want 45", doc.PingInterval)
	}
	if doc.TimeoutDelay != DefaultTimeoutDelay {
		t.Errorf("TimeoutDelay = %d, want default %d", doc.TimeoutDelay, DefaultTimeoutDelay)
	}
}

func TestDocumentFromFlatMapMissingRequired(t *testing.T) {
	raw := map[string]string{
		"hostname": "irc.example.org",
	}

	if _, err := DocumentFromFlatMap(raw); err == nil {
		t.Fatal("expected error for missing name, got none")
	}
}

func TestValidateKickLengthTooLong(t *testing.T) {
	doc := &Document{
		Name:       "test",
		Hostname:   "irc.example.org",
		BindClient: []string{"tcp:6667"},
		KickLength: 300,
	}

	if err := doc.validate(); err == nil {
		t.Fatal("expected error for kick_length > 255, got none")
	}
}
