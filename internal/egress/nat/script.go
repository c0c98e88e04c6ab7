// Package nat renders the in-sandbox NAT script (§4.C.2): the
// iptables OUTPUT-chain rules installed inside the command container,
// before the user command starts, that redirect HTTP-family TCP
// traffic to the proxy and drop everything else. It is a secondary,
// tamper-evident ring: sufficient on its own for the HTTP/HTTPS case,
// but only trustworthy up until the moment NET_ADMIN is dropped from
// the bounding set (see internal/egress/caps).
package nat

import (
	"fmt"
	"strings"

	"github.com/agentfence/awf/internal/policy"
)

// RenderScript turns a NATPlan into a shell script fragment meant to
// run as root inside the command container, before capabilities are
// dropped. It is idempotent in the same sense as the host chain: it
// flushes OUTPUT before appending, so re-running it leaves the chain
// byte-identical to a single run.
func RenderScript(plan policy.NATPlan) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("# awf in-sandbox NAT: redirect HTTP-family egress to the proxy, drop the rest.\n")
	b.WriteString("set -e\n")
	b.WriteString("iptables -t nat -F OUTPUT\n")
	b.WriteString("iptables -F OUTPUT\n\n")

	for _, r := range plan.Rules {
		b.WriteString(renderRule(r))
	}
	return b.String()
}

func renderRule(r policy.FilterRule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", r.Comment)

	var match []string
	if r.Proto == "tcp" || r.Proto == "udp" {
		match = append(match, "-p "+r.Proto)
	}
	if r.Dst != "" {
		match = append(match, "-d "+r.Dst)
	}
	if r.DstPort != "" {
		match = append(match, "--dport "+r.DstPort)
	}
	m := ""
	if len(match) > 0 {
		m = " " + strings.Join(match, " ")
	}

	switch r.Verdict {
	case policy.VerdictAccept:
		fmt.Fprintf(&b, "iptables -A OUTPUT%s -j RETURN\n", m)
	case policy.VerdictDNAT:
		fmt.Fprintf(&b, "iptables -t nat -A OUTPUT%s -j DNAT --to-destination %s\n", m, r.DNATTo)
	case policy.VerdictDrop:
		fmt.Fprintf(&b, "iptables -A OUTPUT%s -j DROP\n", m)
	}
	b.WriteString("\n")
	return b.String()
}
