package policy

import "strconv"

// Verdict is the terminal action of a FilterRule.
type Verdict string

const (
	VerdictAccept Verdict = "ACCEPT"
	VerdictReject Verdict = "REJECT"
	VerdictDNAT   Verdict = "DNAT"
	VerdictDrop   Verdict = "DROP"
)

// FilterRule is one ordered entry in a filter chain plan. It is a
// typed intermediate representation: renderers turn a []FilterRule
// into iptables/nftables text, never the reverse, so the same plan
// can back multiple backend syntaxes without re-deriving the policy
// logic (§9 Design Notes: prefer a typed IR over text templates).
type FilterRule struct {
	Comment   string
	Proto     string // "tcp", "udp", "" (any)
	Src       string // CIDR or "" (any)
	Dst       string // CIDR/IP or "" (any)
	DstPort   string // single port, range, or ""
	Verdict   Verdict
	LogPrefix string // non-empty iff this rule should log before acting
	// DNATTo is set only when Verdict == VerdictDNAT: "<ip>:<port>".
	DNATTo string
}

// HostChainPlan is the ordered rule list installed into the named
// chain that the sandbox bridge's egress path jumps into (§4.C.1).
type HostChainPlan struct {
	ChainName string
	BridgeIf  string
	Rules     []FilterRule
}

// NATPlan is the ordered rule list applied inside the command
// container's OUTPUT chain (§4.C.2).
type NATPlan struct {
	Rules []FilterRule
}

// BuildHostChainPlan renders the §4.A host-bridge chain plan from an
// artifact: accept the proxy's own egress and established traffic,
// accept loopback/DNS/proxy traffic, reject multicast/link-local,
// then log-and-reject everything else with the distinctive prefixes
// required by §6.
func BuildHostChainPlan(a *PolicyArtifact, chainName, bridgeIf string) HostChainPlan {
	var rules []FilterRule

	rules = append(rules, FilterRule{
		Comment: "unrestricted egress from the proxy itself",
		Src:     a.ProxyIP + "/32",
		Verdict: VerdictAccept,
	})
	rules = append(rules, FilterRule{
		Comment: "established/related connections",
		Verdict: VerdictAccept,
		// renderer emits this as a conntrack-state match; no fields
		// needed beyond the comment marking its special handling.
		Proto: "ESTABLISHED,RELATED",
	})
	rules = append(rules, FilterRule{
		Comment: "loopback",
		Dst:     "127.0.0.0/8",
		Verdict: VerdictAccept,
	})
	for _, dns := range a.DNSServersV4 {
		rules = append(rules, FilterRule{Comment: "DNS server", Dst: dns + "/32", Proto: "udp", DstPort: "53", Verdict: VerdictAccept})
		rules = append(rules, FilterRule{Comment: "DNS server", Dst: dns + "/32", Proto: "tcp", DstPort: "53", Verdict: VerdictAccept})
	}
	rules = append(rules, FilterRule{
		Comment: "proxy listen address/port",
		Dst:     a.ProxyIP + "/32",
		Proto:   "tcp",
		DstPort: portString(a.ProxyListenPort),
		Verdict: VerdictAccept,
	})
	rules = append(rules, FilterRule{Comment: "link-local", Dst: "169.254.0.0/16", Verdict: VerdictReject})
	rules = append(rules, FilterRule{Comment: "multicast", Dst: "224.0.0.0/4", Verdict: VerdictReject})
	rules = append(rules, FilterRule{
		Comment:   "default deny: UDP other than DNS",
		Proto:     "udp",
		Verdict:   VerdictReject,
		LogPrefix: "[FW_BLOCKED_UDP]",
	})
	rules = append(rules, FilterRule{
		Comment:   "default deny: everything else",
		Verdict:   VerdictReject,
		LogPrefix: "[FW_BLOCKED_OTHER]",
	})

	return HostChainPlan{ChainName: chainName, BridgeIf: bridgeIf, Rules: rules}
}

// BuildNATPlan renders the §4.A in-sandbox NAT OUTPUT-chain plan from
// an artifact: let loopback/DNS/proxy traffic pass untouched, DNAT
// every HTTP-family destination port to the proxy, and drop
// everything else outbound.
func BuildNATPlan(a *PolicyArtifact) NATPlan {
	var rules []FilterRule

	rules = append(rules, FilterRule{Comment: "loopback", Dst: "127.0.0.0/8", Verdict: VerdictAccept})
	if a.IPv6Enabled {
		rules = append(rules, FilterRule{Comment: "loopback v6", Dst: "::1/128", Verdict: VerdictAccept})
	}
	for _, dns := range a.DNSServersV4 {
		rules = append(rules, FilterRule{Comment: "DNS", Dst: dns + "/32", Verdict: VerdictAccept})
	}
	for _, dns := range a.DNSServersV6 {
		rules = append(rules, FilterRule{Comment: "DNS v6", Dst: dns + "/128", Verdict: VerdictAccept})
	}
	rules = append(rules, FilterRule{Comment: "proxy", Dst: a.ProxyIP + "/32", Verdict: VerdictAccept})

	ports := append([]HostPortRule{}, DefaultHTTPPorts...)
	ports = append(ports, a.HostPorts...)
	target := a.ProxyIP + ":" + portString(a.ProxyListenPort)
	for _, p := range ports {
		rules = append(rules, FilterRule{
			Comment: "redirect HTTP-family port to proxy",
			Proto:   "tcp",
			DstPort: p.String(),
			Verdict: VerdictDNAT,
			DNATTo:  target,
		})
	}

	rules = append(rules, FilterRule{Comment: "default deny: all other outbound TCP", Proto: "tcp", Verdict: VerdictDrop})

	return NATPlan{Rules: rules}
}

func portString(p int) string {
	if p == 0 {
		return ""
	}
	return strconv.Itoa(p)
}
