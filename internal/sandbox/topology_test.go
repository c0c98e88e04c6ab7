package sandbox

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/agentfence/awf/internal/policy"
)

func testArtifact() *policy.PolicyArtifact {
	return &policy.PolicyArtifact{
		BridgeSubnet:    "10.200.7.0/24",
		ProxyIP:         "10.200.7.10",
		CommandIP:       "10.200.7.20",
		ProxyListenPort: 3128,
	}
}

func TestBuildTopologyAssignsFixedIPs(t *testing.T) {
	topo := BuildTopology("abcdef1234567890", testArtifact(), "proxy:latest", "cmd:latest", []string{"true"}, nil, false)
	if topo.Proxy.FixedIP != "10.200.7.10" {
		t.Errorf("expected proxy IP 10.200.7.10, got %s", topo.Proxy.FixedIP)
	}
	if topo.Command.FixedIP != "10.200.7.20" {
		t.Errorf("expected command IP 10.200.7.20, got %s", topo.Command.FixedIP)
	}
	if topo.Sidecar != nil {
		t.Errorf("expected no sidecar when credentialIsolation is false")
	}
}

func TestBuildTopologyOnlyCommandGetsNetAdmin(t *testing.T) {
	topo := BuildTopology("abcdef1234567890", testArtifact(), "proxy:latest", "cmd:latest", []string{"true"}, nil, true)
	if len(topo.Proxy.CapAdd) != 0 {
		t.Errorf("expected proxy to receive no added capabilities, got %v", topo.Proxy.CapAdd)
	}
	if topo.Sidecar != nil && len(topo.Sidecar.CapAdd) != 0 {
		t.Errorf("expected sidecar to receive no added capabilities, got %v", topo.Sidecar.CapAdd)
	}
	found := false
	for _, c := range topo.Command.CapAdd {
		if c == "NET_ADMIN" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected command container to receive NET_ADMIN, got %v", topo.Command.CapAdd)
	}
}

func TestBuildTopologySidecarGetsThirdFixedIP(t *testing.T) {
	topo := BuildTopology("abcdef1234567890", testArtifact(), "proxy:latest", "cmd:latest", []string{"true"}, nil, true)
	if topo.Sidecar == nil {
		t.Fatal("expected sidecar when credentialIsolation is true")
	}
	if topo.Sidecar.FixedIP != "10.200.7.30" {
		t.Errorf("expected sidecar IP 10.200.7.30, got %s", topo.Sidecar.FixedIP)
	}
}

func TestMarshalTopologyDescriptorRoundTrips(t *testing.T) {
	topo := BuildTopology("abcdef1234567890", testArtifact(), "proxy:latest", "cmd:latest", []string{"true"}, nil, true)
	data, err := MarshalTopologyDescriptor(topo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), "\"RunID\"") {
		t.Errorf("expected descriptor to be JSON containing RunID, got %s", data)
	}
	var back SandboxTopology
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if back.RunID != topo.RunID {
		t.Errorf("expected round-tripped RunID %q, got %q", topo.RunID, back.RunID)
	}
}
