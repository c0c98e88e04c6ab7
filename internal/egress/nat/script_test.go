package nat

import (
	"strings"
	"testing"

	"github.com/agentfence/awf/internal/policy"
)

func TestRenderScriptRedirectsDefaultPorts(t *testing.T) {
	a, err := policy.Compile(policy.Inputs{
		AllowedDomains:   []string{"github.com"},
		BridgeSubnetPool: []string{"10.200.7.0/24"},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	plan := policy.BuildNATPlan(a)
	script := RenderScript(plan)

	for _, want := range []string{"--dport 80", "--dport 443", "DNAT --to-destination " + a.ProxyIP} {
		if !strings.Contains(script, want) {
			t.Errorf("expected NAT script to contain %q, got:\n%s", want, script)
		}
	}
	if !strings.HasSuffix(strings.TrimRight(script, "\n"), "-j DROP") {
		t.Errorf("NAT script must end with a default-deny DROP")
	}
}

func TestRenderScriptFlushesBeforeAppending(t *testing.T) {
	a, err := policy.Compile(policy.Inputs{
		AllowedDomains:   []string{"github.com"},
		BridgeSubnetPool: []string{"10.200.7.0/24"},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	script := RenderScript(policy.BuildNATPlan(a))
	if !strings.Contains(script, "iptables -t nat -F OUTPUT") || !strings.Contains(script, "iptables -F OUTPUT") {
		t.Errorf("expected script to flush OUTPUT chains before appending rules")
	}
}
