package interceptor

import (
	"strings"
	"testing"
)

func testConfig() Config {
	return Config{BridgeNetwork: "awf-sandbox", ProxyIP: "10.200.7.10", ProxyPort: 3128, NATPreamble: "/usr/local/bin/awf-nat-install"}
}

func TestDecidePassthroughForNonRun(t *testing.T) {
	d := Decide([]string{"ps", "-a"}, testConfig())
	if d.Kind != Passthrough {
		t.Fatalf("expected Passthrough, got %v", d.Kind)
	}
}

func TestDecideDeniesPrivileged(t *testing.T) {
	d := Decide([]string{"run", "--privileged", "alpine", "true"}, testConfig())
	if d.Kind != Deny {
		t.Fatalf("expected Deny, got %v", d.Kind)
	}
	if !strings.Contains(d.Reason, "privileged") {
		t.Errorf("expected reason to mention privileged, got %q", d.Reason)
	}
}

func TestDecideDeniesAddHost(t *testing.T) {
	for _, argv := range [][]string{
		{"run", "--add-host", "evil.com:1.2.3.4", "alpine"},
		{"run", "--add-host=evil.com:1.2.3.4", "alpine"},
	} {
		d := Decide(argv, testConfig())
		if d.Kind != Deny {
			t.Fatalf("argv %v: expected Deny, got %v", argv, d.Kind)
		}
	}
}

func TestDecideDeniesHostNetwork(t *testing.T) {
	for _, argv := range [][]string{
		{"run", "--network", "host", "alpine"},
		{"run", "--network=host", "alpine"},
		{"run", "--net=host", "alpine"},
	} {
		d := Decide(argv, testConfig())
		if d.Kind != Deny {
			t.Fatalf("argv %v: expected Deny, got %v", argv, d.Kind)
		}
	}
}

func TestDecideAllowsAndRewritesNetwork(t *testing.T) {
	d := Decide([]string{"run", "--network", "bridge", "alpine", "true"}, testConfig())
	if d.Kind != Allow {
		t.Fatalf("expected Allow, got %v (%s)", d.Kind, d.Reason)
	}
	found := false
	for _, a := range d.RewrittenArgs {
		if a == "--network=awf-sandbox" {
			found = true
		}
		if a == "bridge" {
			t.Errorf("original network value must not survive rewriting, got %v", d.RewrittenArgs)
		}
	}
	if !found {
		t.Errorf("expected rewritten args to force the sandbox bridge network, got %v", d.RewrittenArgs)
	}
}

func TestDecideInjectsProxyEnv(t *testing.T) {
	d := Decide([]string{"run", "alpine", "true"}, testConfig())
	joined := strings.Join(d.RewrittenArgs, " ")
	for _, want := range []string{"HTTP_PROXY=http://10.200.7.10:3128", "HTTPS_PROXY=http://10.200.7.10:3128"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected rewritten args to inject %q, got %v", want, d.RewrittenArgs)
		}
	}
}

func TestDecideWarnsWhenNoCommandVector(t *testing.T) {
	d := Decide([]string{"run", "alpine"}, testConfig())
	if d.Kind != Allow {
		t.Fatalf("expected Allow, got %v", d.Kind)
	}
	if !d.NATPreambleSkipped {
		t.Errorf("expected NATPreambleSkipped when no command vector was supplied")
	}
}

func TestDecideWrapsCommandWithNATPreamble(t *testing.T) {
	d := Decide([]string{"run", "alpine", "curl", "https://example.com"}, testConfig())
	joined := strings.Join(d.RewrittenArgs, " ")
	if !strings.Contains(joined, "awf-nat-install") {
		t.Errorf("expected NAT preamble to be woven into the nested command, got %v", d.RewrittenArgs)
	}
}

func TestDecideQuotesNestedCommandArgumentsContainingSpaces(t *testing.T) {
	d := Decide([]string{"run", "alpine", "sh", "-c", "echo hello; rm -rf /"}, testConfig())
	joined := strings.Join(d.RewrittenArgs, " ")
	if !strings.Contains(joined, `'echo hello; rm -rf /'`) {
		t.Errorf("expected the nested command argument to be single-quoted intact, got %v", d.RewrittenArgs)
	}
}
