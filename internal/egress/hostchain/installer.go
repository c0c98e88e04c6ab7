package hostchain

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/agentfence/awf/internal/policy"
	"github.com/rs/zerolog"
)

// Installer applies a HostChainPlan to the host by shelling out to
// iptables, the same os/exec-driven pattern the rest of the container
// tooling in this codebase uses rather than linking a netlink client
// library directly.
type Installer struct {
	log zerolog.Logger
}

// NewInstaller builds an Installer that logs through log.
func NewInstaller(log zerolog.Logger) *Installer {
	return &Installer{log: log}
}

// Install renders plan and replaces the named chain's contents: it
// flushes the existing chain (creating it first if absent) and
// re-appends every rule in order, so re-running Install on a host
// where the chain already exists replaces rather than appends
// (§4.C.1 idempotence). The replacement is a sequence of separate
// iptables calls, so it is not atomic: between the flush and the last
// append the chain holds only part of the plan.
//
// Install fails closed: any error here must cause the orchestrator to
// abort before starting containers (§4.C.1).
func (ins *Installer) Install(ctx context.Context, plan policy.HostChainPlan) error {
	if err := ins.ensureChain(ctx, plan.ChainName); err != nil {
		return fmt.Errorf("host-bridge filter chain %s: %w", plan.ChainName, err)
	}
	if err := ins.run(ctx, "iptables", "-F", plan.ChainName); err != nil {
		return fmt.Errorf("flushing chain %s: %w", plan.ChainName, err)
	}
	if err := ins.ensureJump(ctx, plan.ChainName, plan.BridgeIf); err != nil {
		return fmt.Errorf("attaching chain %s to bridge %s: %w", plan.ChainName, plan.BridgeIf, err)
	}

	for _, r := range plan.Rules {
		if err := ins.installRule(ctx, plan.ChainName, r); err != nil {
			return fmt.Errorf("installing rule %q: %w", r.Comment, err)
		}
	}
	if err := ins.run(ctx, "iptables", "-A", plan.ChainName, "-j", "DROP"); err != nil {
		return fmt.Errorf("installing default DROP in %s: %w", plan.ChainName, err)
	}

	ins.log.Info().Str("chain", plan.ChainName).Str("bridge", plan.BridgeIf).Int("rules", len(plan.Rules)).Msg("host-bridge filter chain installed")
	return nil
}

// Remove deletes the chain and its jump rule during teardown. Remove
// is best-effort: teardown errors are logged, not fatal (§7).
func (ins *Installer) Remove(ctx context.Context, chainName, bridgeIf string) error {
	_ = ins.run(ctx, "iptables", "-D", "FORWARD", "-i", bridgeIf, "-j", chainName)
	if err := ins.run(ctx, "iptables", "-F", chainName); err != nil {
		return err
	}
	return ins.run(ctx, "iptables", "-X", chainName)
}

func (ins *Installer) ensureChain(ctx context.Context, name string) error {
	if err := ins.run(ctx, "iptables", "-N", name); err != nil {
		// Chain already existing is not an error: idempotent install.
		if ins.chainExists(ctx, name) {
			return nil
		}
		return err
	}
	return nil
}

func (ins *Installer) chainExists(ctx context.Context, name string) bool {
	return ins.run(ctx, "iptables", "-L", name, "-n") == nil
}

func (ins *Installer) ensureJump(ctx context.Context, chainName, bridgeIf string) error {
	if ins.run(ctx, "iptables", "-C", "FORWARD", "-i", bridgeIf, "-j", chainName) == nil {
		return nil // jump already present
	}
	return ins.run(ctx, "iptables", "-A", "FORWARD", "-i", bridgeIf, "-j", chainName)
}

func (ins *Installer) installRule(ctx context.Context, chain string, r policy.FilterRule) error {
	if r.LogPrefix != "" {
		args := append([]string{"-A", chain}, matchArgs(r)...)
		args = append(args, "-j", "LOG", "--log-prefix", r.LogPrefix+" ")
		if err := ins.run(ctx, "iptables", args...); err != nil {
			return err
		}
	}
	args := append([]string{"-A", chain}, matchArgs(r)...)
	switch r.Verdict {
	case policy.VerdictAccept:
		args = append(args, "-j", "ACCEPT")
	case policy.VerdictReject:
		args = append(args, "-j", "REJECT")
	case policy.VerdictDrop:
		args = append(args, "-j", "DROP")
	default:
		return fmt.Errorf("host chain rule has unsupported verdict %v", r.Verdict)
	}
	return ins.run(ctx, "iptables", args...)
}

func matchArgs(r policy.FilterRule) []string {
	var args []string
	switch r.Proto {
	case "ESTABLISHED,RELATED":
		args = append(args, "-m", "conntrack", "--ctstate", "ESTABLISHED,RELATED")
	case "tcp", "udp":
		args = append(args, "-p", r.Proto)
	}
	if r.Src != "" {
		args = append(args, "-s", r.Src)
	}
	if r.Dst != "" {
		args = append(args, "-d", r.Dst)
	}
	if r.DstPort != "" {
		args = append(args, "--dport", r.DstPort)
	}
	return args
}

func (ins *Installer) run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w (%s)", name, args, err, stderr.String())
	}
	return nil
}
