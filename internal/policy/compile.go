package policy

import (
	"net"
	"sort"
	"strconv"
	"strings"
)

// DefaultProxyListenPort is used when Inputs.ProxyListenPort is zero.
const DefaultProxyListenPort = 3128

// Inputs carries every value the Policy Compiler consumes. Compile is
// a pure function of Inputs: the same Inputs value always produces a
// byte-identical PolicyArtifact (§8.1). In particular UsedSubnets is
// supplied by the caller (who may have queried the host's existing
// bridges) rather than discovered internally, so Compile itself never
// touches the network or the container runtime.
type Inputs struct {
	AllowedDomains []string
	BlockedDomains []string

	// AllowHostPorts is a comma-separated list of single ports or
	// "low-high" ranges, e.g. "8080,9000-9100".
	AllowHostPorts string

	DNSServers []string

	BridgeSubnetPool []string
	UsedSubnets      []string

	ProxyListenPort int

	CredentialIsolation bool
	SSLBump             bool
}

// Compile translates Inputs into a PolicyArtifact, or one of
// InvalidDomainError, InvalidPortRuleError, SubnetExhaustedError,
// NoAllowedDomainsError on failure.
func Compile(in Inputs) (*PolicyArtifact, error) {
	allowed, err := normalizeAllowed(in.AllowedDomains)
	if err != nil {
		return nil, err
	}
	if len(allowed) == 0 {
		return nil, &NoAllowedDomainsError{}
	}

	blocked, err := normalizeBlocked(in.BlockedDomains)
	if err != nil {
		return nil, err
	}

	hostPorts, err := parsePortRules(in.AllowHostPorts)
	if err != nil {
		return nil, err
	}

	dnsV4, dnsV6 := partitionDNS(in.DNSServers)

	subnet, err := selectSubnet(in.BridgeSubnetPool, in.UsedSubnets)
	if err != nil {
		return nil, err
	}
	proxyIP, cmdIP, err := fixedIPs(subnet)
	if err != nil {
		return nil, err
	}

	port := in.ProxyListenPort
	if port == 0 {
		port = DefaultProxyListenPort
	}

	ipv6Enabled := len(dnsV6) > 0

	return &PolicyArtifact{
		Allowed:             allowed,
		Blocked:             blocked,
		HostPorts:           hostPorts,
		DNSServersV4:        dnsV4,
		DNSServersV6:        dnsV6,
		BridgeSubnet:        subnet,
		ProxyIP:             proxyIP,
		CommandIP:           cmdIP,
		ProxyListenPort:     port,
		CredentialIsolation: in.CredentialIsolation,
		SSLBump:             in.SSLBump,
		IPv6Enabled:         ipv6Enabled,
	}, nil
}

func normalizeAllowed(entries []string) ([]AllowedDomain, error) {
	out := make([]AllowedDomain, 0, len(entries))
	for _, e := range entries {
		exact, subOnly, err := normalizeDomain(e)
		if err != nil {
			return nil, err
		}
		out = append(out, AllowedDomain{Exact: exact, Subdomain: "." + exact, SubdomainOnly: subOnly})
	}
	return out, nil
}

func normalizeBlocked(entries []string) ([]BlockedDomain, error) {
	out := make([]BlockedDomain, 0, len(entries))
	for _, e := range entries {
		exact, subOnly, err := normalizeDomain(e)
		if err != nil {
			return nil, err
		}
		out = append(out, BlockedDomain{Exact: exact, Subdomain: "." + exact, SubdomainOnly: subOnly})
	}
	return out, nil
}

// normalizeDomain trims, lowercases, and validates a single domain
// entry, returning the bare (non-leading-dot) form and whether the
// entry was an explicit "only subdomains" rule (led with ".").
func normalizeDomain(raw string) (exact string, subdomainOnly bool, err error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false, &InvalidDomainError{Entry: raw, Reason: "empty after trimming whitespace"}
	}
	lower := strings.ToLower(trimmed)

	if strings.Contains(lower, "://") {
		return "", false, &InvalidDomainError{Entry: raw, Reason: "must not contain a scheme"}
	}
	if strings.ContainsAny(lower, "/\\") {
		return "", false, &InvalidDomainError{Entry: raw, Reason: "must not contain a path"}
	}
	if strings.Contains(lower, ":") {
		return "", false, &InvalidDomainError{Entry: raw, Reason: "must not contain a port"}
	}

	if strings.HasPrefix(lower, ".") {
		subdomainOnly = true
		lower = lower[1:]
	}
	if lower == "" || strings.HasPrefix(lower, ".") || strings.HasSuffix(lower, ".") {
		return "", false, &InvalidDomainError{Entry: raw, Reason: "malformed dot placement"}
	}
	for _, r := range lower {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '.' && r != '-' {
			return "", false, &InvalidDomainError{Entry: raw, Reason: "contains characters outside [a-z0-9.-]"}
		}
	}
	return lower, subdomainOnly, nil
}

func parsePortRules(spec string) ([]HostPortRule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	var rules []HostPortRule
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.Index(part, "-"); idx >= 0 {
			loS, hiS := part[:idx], part[idx+1:]
			lo, err1 := strconv.Atoi(strings.TrimSpace(loS))
			hi, err2 := strconv.Atoi(strings.TrimSpace(hiS))
			if err1 != nil || err2 != nil {
				return nil, &InvalidPortRuleError{Entry: part, Reason: "not a valid port range"}
			}
			if lo > hi {
				return nil, &InvalidPortRuleError{Entry: part, Reason: "range is inverted"}
			}
			if lo < 1 || hi > 65535 {
				return nil, &InvalidPortRuleError{Entry: part, Reason: "out of range 1-65535"}
			}
			rules = append(rules, HostPortRule{Low: lo, High: hi})
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil || p < 1 || p > 65535 {
			return nil, &InvalidPortRuleError{Entry: part, Reason: "out of range 1-65535"}
		}
		rules = append(rules, HostPortRule{Low: p, High: p})
	}
	return rules, nil
}

func partitionDNS(servers []string) (v4, v6 []string) {
	for _, s := range servers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		ip := net.ParseIP(s)
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			v4 = append(v4, s)
		} else {
			v6 = append(v6, s)
		}
	}
	sort.Strings(v4)
	sort.Strings(v6)
	return v4, v6
}

// selectSubnet probes pool in order and returns the first entry not
// present in used.
func selectSubnet(pool, used []string) (string, error) {
	inUse := make(map[string]bool, len(used))
	for _, u := range used {
		inUse[u] = true
	}
	for _, candidate := range pool {
		if !inUse[candidate] {
			return candidate, nil
		}
	}
	return "", &SubnetExhaustedError{Pool: pool}
}

func fixedIPs(cidr string) (proxyIP, commandIP string, err error) {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return "", "", &InvalidDomainError{Entry: cidr, Reason: "not a valid CIDR subnet"}
	}
	base := ipnet.IP.To4()
	if base == nil {
		return "", "", &InvalidDomainError{Entry: cidr, Reason: "not an IPv4 /24"}
	}
	proxy := net.IPv4(base[0], base[1], base[2], ProxyHostSuffix)
	cmd := net.IPv4(base[0], base[1], base[2], CommandHostSuffix)
	return proxy.String(), cmd.String(), nil
}
