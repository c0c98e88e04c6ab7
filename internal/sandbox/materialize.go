package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentfence/awf/internal/egress/caps"
	"github.com/agentfence/awf/internal/egress/nat"
	"github.com/agentfence/awf/internal/policy"
)

// Materialized holds the paths of everything written to the work
// directory, per the §6 layout:
//
//	<work-dir>/proxy.conf
//	<work-dir>/topology.desc
//	<work-dir>/command-entrypoint.sh
//	<work-dir>/proxy-entrypoint.sh
//	<work-dir>/proxy-logs/
//	<work-dir>/command-logs/
type Materialized struct {
	WorkDir               string
	ProxyConfPath          string
	TopologyDescPath       string
	CommandEntrypointPath  string
	ProxyEntrypointPath    string
	ProxyLogsDir           string
	CommandLogsDir         string
}

// Materialize creates a fresh work directory and writes every
// generated artifact into it (§4.D Materialization).
func Materialize(workDir string, a *policy.PolicyArtifact, topo SandboxTopology, uid, gid int) (*Materialized, error) {
	if err := os.MkdirAll(workDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating work directory %s: %w", workDir, err)
	}

	m := &Materialized{
		WorkDir:              workDir,
		ProxyConfPath:         filepath.Join(workDir, "proxy.conf"),
		TopologyDescPath:      filepath.Join(workDir, "topology.desc"),
		CommandEntrypointPath: filepath.Join(workDir, "command-entrypoint.sh"),
		ProxyEntrypointPath:   filepath.Join(workDir, "proxy-entrypoint.sh"),
		ProxyLogsDir:          filepath.Join(workDir, "proxy-logs"),
		CommandLogsDir:        filepath.Join(workDir, "command-logs"),
	}

	for _, dir := range []string{m.ProxyLogsDir, m.CommandLogsDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(m.ProxyConfPath, []byte(policy.RenderProxyACL(a)), 0o600); err != nil {
		return nil, fmt.Errorf("writing proxy.conf: %w", err)
	}

	desc, err := MarshalTopologyDescriptor(topo)
	if err != nil {
		return nil, fmt.Errorf("marshaling topology descriptor: %w", err)
	}
	if err := os.WriteFile(m.TopologyDescPath, desc, 0o600); err != nil {
		return nil, fmt.Errorf("writing topology.desc: %w", err)
	}

	if err := os.WriteFile(m.CommandEntrypointPath, []byte(renderCommandEntrypoint(a, uid, gid)), 0o700); err != nil {
		return nil, fmt.Errorf("writing command-entrypoint.sh: %w", err)
	}

	if err := os.WriteFile(m.ProxyEntrypointPath, []byte(renderProxyEntrypoint(a)), 0o700); err != nil {
		return nil, fmt.Errorf("writing proxy-entrypoint.sh: %w", err)
	}

	return m, nil
}

// renderCommandEntrypoint builds the script that runs as PID 1 inside
// the command container. Its steps, in order, are the invocation
// chain §4.C.2 mandates: adjust identity, install NAT, drop
// NET_ADMIN, switch user, exec the user's command with the preload
// library active. There must be no suspension point between the
// capability drop and the final exec.
func renderCommandEntrypoint(a *policy.PolicyArtifact, uid, gid int) string {
	natPlan := nat.RenderScript(policy.BuildNATPlan(a))

	return fmt.Sprintf(`#!/bin/sh
set -e

# 1. Adjust the sandbox user to mirror the invoking user's UID/GID (%s).
groupmod -o -g %d awf 2>/dev/null || true
usermod -o -u %d awf 2>/dev/null || true

# 2. Install the in-sandbox NAT (requires NET_ADMIN, still held here).
cat <<'AWF_NAT_SCRIPT' > /awf/nat-install.sh
%s
AWF_NAT_SCRIPT
chmod +x /awf/nat-install.sh
/awf/nat-install.sh

# 3. Drop NET_ADMIN from the bounding set, then immediately exec the
#    user command as the unprivileged user with no suspension points
#    in between (%s). setpriv performs the reuid/regid switch itself,
#    so "$@" reaches the final exec as separate argv entries instead
#    of being IFS-joined and re-split through a nested shell.
exec setpriv --bounding-set -net_admin --reuid awf --regid awf --init-groups \
  env LD_PRELOAD=/awf/libawfpreload.so "$@"
`, "mirrors §6 UID/GID handoff", gid, uid, natPlan, "§9 Design Notes atomic handoff")
}

// renderProxyEntrypoint builds the proxy container's foreground
// startup script: fix permissions, optionally seed an on-tmpfs
// certificate database for SSL-bump mode, then run the proxy.
func renderProxyEntrypoint(a *policy.PolicyArtifact) string {
	var sslBump string
	if a.SSLBump {
		sslBump = "squid -z --foreground -f /etc/squid/squid.conf\n"
	}
	return fmt.Sprintf(`#!/bin/sh
set -e
chown -R proxy:proxy /var/log/proxy /etc/squid/squid.conf
%sexec squid -N -f /etc/squid/squid.conf
`, sslBump)
}

// DropNetAdminNow is a thin wrapper kept alongside the entrypoint
// renderer so Go-native supervisors (as opposed to the generated
// shell script above, used for the real container image) can perform
// the same handoff when running under test doubles.
func DropNetAdminNow() error {
	return caps.DropNetAdmin()
}
