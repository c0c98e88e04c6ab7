// Package sandbox implements the Sandbox Lifecycle Manager (§4.D):
// materializing, starting, supervising, and tearing down the
// three-container network topology. It generalizes the teacher's
// single-process Manager (one Go process running in-process HTTP/
// SOCKS proxies plus socat bridges) into a multi-container Docker
// driver, keeping the same "Manager owns Initialize/WrapCommand/
// Cleanup lifecycle" shape.
package sandbox

import (
	"encoding/json"

	"github.com/agentfence/awf/internal/policy"
)

// ContainerRole names the three possible container slots in a
// SandboxTopology.
type ContainerRole string

const (
	RoleProxy             ContainerRole = "proxy"
	RoleCommand            ContainerRole = "command"
	RoleCredentialSidecar ContainerRole = "credential-sidecar"
)

// ContainerSpec is one entry of a SandboxTopology's container
// descriptors (§3 SandboxTopology).
type ContainerSpec struct {
	Role       ContainerRole
	Name       string
	Image      string
	Command    []string
	Env        []string
	Mounts     []Mount
	CapAdd     []string
	CapDrop    []string
	FixedIP    string
	User       string
	Privileged bool
}

// Mount is a single bind mount into a container.
type Mount struct {
	Source      string
	Destination string
	ReadOnly    bool
}

// BridgeSpec describes the sandbox's private bridge network.
type BridgeSpec struct {
	Name   string
	Subnet string
}

// SandboxTopology is the full container-topology descriptor
// materialized to topology.desc (§6 work-directory layout). Only the
// command container ever receives NET_ADMIN; proxy and sidecar run as
// non-root; the bridge is exclusive to this run's containers.
type SandboxTopology struct {
	RunID     string
	Bridge    BridgeSpec
	Proxy     ContainerSpec
	Command   ContainerSpec
	Sidecar   *ContainerSpec // nil unless credential isolation is enabled
}

// BuildTopology derives a SandboxTopology from a compiled
// PolicyArtifact. It is pure: it only reads the artifact and the
// caller-supplied run identity/command, never the filesystem or
// network.
func BuildTopology(runID string, a *policy.PolicyArtifact, proxyImage, commandImage string, userCommand []string, env []string, credentialIsolation bool) SandboxTopology {
	bridgeName := "awf-" + runID[:8]

	t := SandboxTopology{
		RunID:  runID,
		Bridge: BridgeSpec{Name: bridgeName, Subnet: a.BridgeSubnet},
		Proxy: ContainerSpec{
			Role:    RoleProxy,
			Name:    bridgeName + "-proxy",
			Image:   proxyImage,
			FixedIP: a.ProxyIP,
			User:    "proxy",
			Mounts: []Mount{
				{Source: "proxy.conf", Destination: "/etc/squid/squid.conf", ReadOnly: true},
			},
		},
		Command: ContainerSpec{
			Role:    RoleCommand,
			Name:    bridgeName + "-cmd",
			Image:   commandImage,
			Command: userCommand,
			Env:     env,
			FixedIP: a.CommandIP,
			CapAdd:  []string{"NET_ADMIN"},
			Mounts: []Mount{
				{Source: "command-entrypoint.sh", Destination: "/awf/entrypoint.sh", ReadOnly: true},
			},
		},
	}

	if credentialIsolation {
		t.Sidecar = &ContainerSpec{
			Role:    RoleCredentialSidecar,
			Name:    bridgeName + "-sidecar",
			User:    "sidecar",
			FixedIP: sidecarIP(a.BridgeSubnet),
		}
	}

	return t
}

// sidecarIP picks .30 in the bridge subnet, the fixed address used by
// the optional credential sidecar (proxy is .10, command is .20).
func sidecarIP(subnet string) string {
	// subnet is always a validated /24 of the form "a.b.c.0/24" by
	// construction (policy.Compile); replace the last octet.
	base := subnet
	for i := len(subnet) - 1; i >= 0; i-- {
		if subnet[i] == '.' {
			base = subnet[:i+1] + "30"
			break
		}
	}
	return base
}

// MarshalTopologyDescriptor renders the topology.desc file: JSON, the
// same tolerant-reader format used for policy input files.
func MarshalTopologyDescriptor(t SandboxTopology) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}
