package hostchain

import (
	"strings"
	"testing"

	"github.com/agentfence/awf/internal/policy"
)

func testArtifact(t *testing.T) *policy.PolicyArtifact {
	t.Helper()
	a, err := policy.Compile(policy.Inputs{
		AllowedDomains:   []string{"github.com"},
		BridgeSubnetPool: []string{"10.200.7.0/24"},
		DNSServers:       []string{"8.8.8.8"},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return a
}

func TestRenderIncludesDistinctiveLogPrefixes(t *testing.T) {
	a := testArtifact(t)
	plan := policy.BuildHostChainPlan(a, "AWF_FILTER", "awf0")
	text := Render(plan)

	for _, want := range []string{"[FW_BLOCKED_UDP]", "[FW_BLOCKED_OTHER]"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected rendered chain to contain log prefix %s, got:\n%s", want, text)
		}
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	a := testArtifact(t)
	plan := policy.BuildHostChainPlan(a, "AWF_FILTER", "awf0")
	if Render(plan) != Render(plan) {
		t.Error("Render must be a pure function of its plan")
	}
}

func TestRenderEndsWithDefaultDrop(t *testing.T) {
	a := testArtifact(t)
	plan := policy.BuildHostChainPlan(a, "AWF_FILTER", "awf0")
	text := strings.TrimRight(Render(plan), "\n")
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] != "-A AWF_FILTER -j DROP" {
		t.Errorf("expected chain to end with an unconditional DROP, last line was %q", lines[len(lines)-1])
	}
}
