// Package hostchain renders and installs the host-bridge filter chain
// (§4.C.1): a named iptables chain that the sandbox bridge's egress
// path jumps into, built from the typed policy.HostChainPlan so the
// installer text is never hand-assembled string-by-string. This is
// the security-critical ring: even an adversary that bypasses the
// in-sandbox NAT and the nested-launch interceptor still passes
// through this chain, which runs on the host and is never reachable
// from inside the sandbox.
package hostchain

import (
	"fmt"
	"strings"

	"github.com/agentfence/awf/internal/policy"
)

// Render turns a plan into an iptables-restore-compatible fragment
// for the named chain, plus the jump rule that attaches it to the
// bridge's FORWARD path. Rendering is pure and idempotent: the same
// plan always renders the same text (§8.13).
func Render(plan policy.HostChainPlan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# awf host-bridge filter chain: %s (bridge %s)\n", plan.ChainName, plan.BridgeIf)
	fmt.Fprintf(&b, ":%s - [0:0]\n", plan.ChainName)
	fmt.Fprintf(&b, "-A FORWARD -i %s -j %s\n\n", plan.BridgeIf, plan.ChainName)

	for _, r := range plan.Rules {
		b.WriteString(renderRule(plan.ChainName, r))
	}
	fmt.Fprintf(&b, "-A %s -j DROP\n", plan.ChainName)

	return b.String()
}

func renderRule(chain string, r policy.FilterRule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", r.Comment)

	match := matchClause(r)

	if r.LogPrefix != "" {
		fmt.Fprintf(&b, "-A %s%s -j LOG --log-prefix \"%s \"\n", chain, match, r.LogPrefix)
	}

	switch r.Verdict {
	case policy.VerdictAccept:
		fmt.Fprintf(&b, "-A %s%s -j ACCEPT\n", chain, match)
	case policy.VerdictReject:
		fmt.Fprintf(&b, "-A %s%s -j REJECT\n", chain, match)
	case policy.VerdictDrop:
		fmt.Fprintf(&b, "-A %s%s -j DROP\n", chain, match)
	}
	b.WriteString("\n")
	return b.String()
}

func matchClause(r policy.FilterRule) string {
	var parts []string
	switch r.Proto {
	case "ESTABLISHED,RELATED":
		parts = append(parts, "-m conntrack --ctstate ESTABLISHED,RELATED")
	case "tcp", "udp":
		parts = append(parts, "-p "+r.Proto)
	}
	if r.Src != "" {
		parts = append(parts, "-s "+r.Src)
	}
	if r.Dst != "" {
		parts = append(parts, "-d "+r.Dst)
	}
	if r.DstPort != "" {
		parts = append(parts, "--dport "+r.DstPort)
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}
