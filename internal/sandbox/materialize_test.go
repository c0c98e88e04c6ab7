package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentfence/awf/internal/policy"
)

func TestMaterializeWritesAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	workDir := filepath.Join(dir, "run")
	a := testArtifact()
	topo := BuildTopology("abcdef1234567890", a, "proxy:latest", "cmd:latest", []string{"true"}, nil, false)

	m, err := Materialize(workDir, a, topo, 1000, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, p := range []string{m.ProxyConfPath, m.TopologyDescPath, m.CommandEntrypointPath, m.ProxyEntrypointPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
	for _, d := range []string{m.ProxyLogsDir, m.CommandLogsDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("expected %s to be a directory: %v", d, err)
		}
	}
}

func TestRenderCommandEntrypointEmbedsNATScriptAndDropsCapAfterInstall(t *testing.T) {
	a := testArtifact()
	script := renderCommandEntrypoint(a, 1000, 1000)

	installIdx := strings.Index(script, "/awf/nat-install.sh")
	dropIdx := strings.Index(script, "--bounding-set -net_admin")
	if installIdx == -1 || dropIdx == -1 {
		t.Fatalf("expected script to contain both NAT install and capability drop, got:\n%s", script)
	}
	if installIdx > dropIdx {
		t.Errorf("expected NAT installation to precede the capability drop, got:\n%s", script)
	}
	if !strings.Contains(script, "exec setpriv") {
		t.Errorf("expected the final step to exec via setpriv with no suspension point, got:\n%s", script)
	}
}

func TestRenderProxyEntrypointIncludesSSLBumpWhenEnabled(t *testing.T) {
	a := testArtifact()
	a.SSLBump = true
	script := renderProxyEntrypoint(a)
	if !strings.Contains(script, "squid -z") {
		t.Errorf("expected cert database seeding step when SSLBump is enabled, got:\n%s", script)
	}
}

func TestRenderProxyEntrypointOmitsSSLBumpByDefault(t *testing.T) {
	a := testArtifact()
	a.SSLBump = false
	script := renderProxyEntrypoint(a)
	if strings.Contains(script, "squid -z") {
		t.Errorf("expected no cert database seeding step when SSLBump is disabled, got:\n%s", script)
	}
}
