package policy

import (
	"fmt"
	"strings"
)

// AccessLogFormat is the bit-exact access-log line layout required by
// §6: "<unix-ts.ms> <client> <host> <dest> <http-ver> <method> <status>
// <decision>:<hierarchy> <url> \"<ua>\"".
const AccessLogFormat = `%ts %>a %{Host}>h %<a %rv %rm %>Hs %Ss:%Sh %ru "%{User-Agent}>h"`

// RenderProxyACL renders the proxy's native configuration text from a
// PolicyArtifact. It is a pure function: identical artifacts render
// byte-identical text (§8.1).
func RenderProxyACL(a *PolicyArtifact) string {
	var b strings.Builder

	fmt.Fprintf(&b, "http_port %s:%d\n\n", a.ProxyIP, a.ProxyListenPort)

	b.WriteString("acl allowed_domains dstdomain")
	for _, d := range a.Allowed {
		b.WriteString(" " + d.Subdomain)
		if !d.SubdomainOnly {
			b.WriteString(" " + d.Exact)
		}
	}
	b.WriteString("\n")

	if len(a.Blocked) > 0 {
		b.WriteString("acl blocked_domains dstdomain")
		for _, d := range a.Blocked {
			b.WriteString(" " + d.Subdomain)
			if !d.SubdomainOnly {
				b.WriteString(" " + d.Exact)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "acl sandbox_net src %s\n\n", a.BridgeSubnet)

	if len(a.Blocked) > 0 {
		b.WriteString("http_access deny blocked_domains\n")
	}
	b.WriteString("http_access allow allowed_domains sandbox_net\n")
	b.WriteString("http_access deny all\n\n")

	b.WriteString("cache deny all\n")
	b.WriteString("no_cache deny all\n")
	b.WriteString("via off\n")
	b.WriteString("forwarded_for delete\n")
	b.WriteString("request_header_access X-Forwarded-For deny all\n")
	b.WriteString("request_header_access Via deny all\n")
	b.WriteString("request_header_access Cache-Control deny all\n\n")

	fmt.Fprintf(&b, "logformat sandboxed %s\n", AccessLogFormat)
	b.WriteString("access_log /var/log/proxy/access.log sandboxed\n")

	return b.String()
}
