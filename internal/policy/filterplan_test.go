package policy

import "testing"

func TestBuildHostChainPlanLogPrefixes(t *testing.T) {
	a, err := Compile(baseInputs())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	plan := BuildHostChainPlan(a, "AWF_FILTER", "awf0")

	var sawUDP, sawOther bool
	for i, r := range plan.Rules {
		if r.LogPrefix == "[FW_BLOCKED_UDP]" {
			sawUDP = true
		}
		if r.LogPrefix == "[FW_BLOCKED_OTHER]" {
			sawOther = true
			if i != len(plan.Rules)-1 {
				t.Errorf("default-deny-everything-else rule must be last, was at index %d of %d", i, len(plan.Rules))
			}
		}
	}
	if !sawUDP || !sawOther {
		t.Fatalf("expected both distinctive log-prefixed default-deny rules, got sawUDP=%v sawOther=%v", sawUDP, sawOther)
	}
}

func TestBuildNATPlanRedirectsHTTPFamilyPorts(t *testing.T) {
	in := baseInputs()
	in.AllowHostPorts = "8080"
	a, err := Compile(in)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	plan := BuildNATPlan(a)

	wantPorts := map[string]bool{"80": false, "443": false, "8080": false}
	for _, r := range plan.Rules {
		if r.Verdict == VerdictDNAT {
			if _, ok := wantPorts[r.DstPort]; ok {
				wantPorts[r.DstPort] = true
			}
			if r.DNATTo != a.ProxyIP+":3128" {
				t.Errorf("DNAT target = %q, want %s:3128", r.DNATTo, a.ProxyIP)
			}
		}
	}
	for port, seen := range wantPorts {
		if !seen {
			t.Errorf("expected a DNAT rule redirecting port %s to the proxy", port)
		}
	}
	if plan.Rules[len(plan.Rules)-1].Verdict != VerdictDrop {
		t.Errorf("NAT plan must end with a default-deny drop rule")
	}
}
