package proxylog

import "testing"

func TestParseAllowedEntry(t *testing.T) {
	line := `1732999999.123 10.200.7.20 github.com 140.82.112.3 HTTP/1.1 CONNECT 200 TCP_TUNNEL:HIER_DIRECT github.com:443 "curl/8.4.0"`
	e, err := Parse(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Host != "github.com" {
		t.Errorf("expected host github.com, got %q", e.Host)
	}
	if e.Status != 200 {
		t.Errorf("expected status 200, got %d", e.Status)
	}
	if e.Result != "TCP_TUNNEL" || e.Hierarchy != "HIER_DIRECT" {
		t.Errorf("expected TCP_TUNNEL:HIER_DIRECT, got %s:%s", e.Result, e.Hierarchy)
	}
	if e.UserAgent != "curl/8.4.0" {
		t.Errorf("expected user agent curl/8.4.0, got %q", e.UserAgent)
	}
	if e.Denied() {
		t.Errorf("expected entry not to be denied")
	}
}

func TestParseDeniedEntry(t *testing.T) {
	line := `1732999999.456 10.200.7.20 evil.example 0.0.0.0 HTTP/1.1 GET 403 TCP_DENIED:HIER_NONE evil.example/ "agent/1.0"`
	e, err := Parse(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.Denied() {
		t.Errorf("expected entry to be denied")
	}
}

func TestParseMalformedLine(t *testing.T) {
	if _, err := Parse("not enough fields"); err == nil {
		t.Fatal("expected error for malformed line")
	}
}
