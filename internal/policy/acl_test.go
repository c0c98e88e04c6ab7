package policy

import (
	"strings"
	"testing"
)

func TestRenderProxyACLContainsBothDomainForms(t *testing.T) {
	a, err := Compile(baseInputs())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	text := RenderProxyACL(a)
	for _, want := range []string{"github.com", ".github.com", "acl allowed_domains dstdomain", "http_port 10.200.7.10:3128"} {
		if indexOf(text, want) < 0 {
			t.Errorf("expected ACL text to contain %q, got:\n%s", want, text)
		}
	}
	if indexOf(text, "acl blocked_domains") >= 0 {
		t.Errorf("blocked_domains ACL should be omitted when there are no blocked entries")
	}
}

func TestRenderProxyACLOmitsApexForSubdomainOnlyEntries(t *testing.T) {
	in := baseInputs()
	in.AllowedDomains = []string{".example.com"}
	a, err := Compile(in)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	text := RenderProxyACL(a)
	var aclLine string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "acl allowed_domains") {
			aclLine = line
			break
		}
	}
	tokens := strings.Fields(aclLine)
	for _, tok := range tokens {
		if tok == "example.com" {
			t.Fatalf("expected the bare apex to never appear on the ACL line for a subdomain-only rule, got:\n%s", aclLine)
		}
	}
	if indexOf(aclLine, ".example.com") < 0 {
		t.Errorf("expected the subdomain form to still be present, got:\n%s", aclLine)
	}
}

func TestRenderProxyACLNoCaching(t *testing.T) {
	a, err := Compile(baseInputs())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	text := RenderProxyACL(a)
	for _, want := range []string{"cache deny all", "no_cache deny all"} {
		if indexOf(text, want) < 0 {
			t.Errorf("expected ACL text to disable caching with %q", want)
		}
	}
}

func TestRenderProxyACLDenyAllIsLast(t *testing.T) {
	in := baseInputs()
	in.BlockedDomains = []string{"gist.github.com"}
	a, err := Compile(in)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	text := RenderProxyACL(a)
	deny := indexOf(text, "http_access deny blocked_domains")
	allow := indexOf(text, "http_access allow allowed_domains")
	denyAll := indexOf(text, "http_access deny all")
	if !(deny < allow && allow < denyAll) {
		t.Fatalf("expected rule order deny-blocked < allow-allowed < deny-all, got indices %d %d %d", deny, allow, denyAll)
	}
}
