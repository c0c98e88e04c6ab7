package sandbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/agentfence/awf/internal/egress/hostchain"
	"github.com/agentfence/awf/internal/policy"
)

// Manager sequences the strict startup order (§5): bridge, then
// host-bridge filter chain, then proxy (wait for ready), then the
// optional credential sidecar, then the command container. Only the
// proxy is probed for readiness; the sidecar is started without a
// readiness wait. It generalizes the teacher's single-process
// Initialize/WrapCommand/Cleanup Manager into a multi-container driver,
// keeping the same lifecycle shape.
type Manager struct {
	log       zerolog.Logger
	docker    *DockerDriver
	installer *hostchain.Installer

	chainName string
	bridgeIf  string

	topo  SandboxTopology
	mat   *Materialized
	ready bool
}

// NewManager builds a Manager bound to one run's topology and
// materialized work directory.
func NewManager(log zerolog.Logger, docker *DockerDriver, topo SandboxTopology, mat *Materialized) *Manager {
	return &Manager{
		log:       log,
		docker:    docker,
		installer: hostchain.NewInstaller(log),
		chainName: "AWF-" + topo.RunID[:8],
		bridgeIf:  "br-" + topo.RunID[:8],
		topo:      topo,
		mat:       mat,
	}
}

// RunResult captures a completed command container run for the
// orchestrator's exit-code mapping.
type RunResult struct {
	ExitCode     int
	ProxyDiedMid bool
}

// Start brings up the bridge, host filter chain, proxy, optional
// sidecar, and command container in order, waiting for readiness
// between network-dependent stages. On any failure it tears down
// everything it already started before returning the error.
func (m *Manager) Start(ctx context.Context, a *policy.PolicyArtifact) error {
	if err := m.docker.CreateBridge(ctx, m.topo.Bridge); err != nil {
		return fmt.Errorf("sandbox startup: %w", err)
	}

	plan := policy.BuildHostChainPlan(a, m.chainName, m.bridgeIf)
	if err := m.installer.Install(ctx, plan); err != nil {
		m.docker.RemoveBridge(ctx, m.topo.Bridge.Name)
		return fmt.Errorf("sandbox startup: %w", err)
	}

	if _, err := m.docker.StartContainer(ctx, m.topo.Bridge.Name, m.topo.Proxy, m.mat.WorkDir); err != nil {
		m.teardownFrom(ctx, stageFilter)
		return fmt.Errorf("sandbox startup: %w", err)
	}
	if _, err := WaitReady(ctx, NewTCPReadinessChecker(fmt.Sprintf("%s:%d", a.ProxyIP, a.ProxyListenPort)), 30*time.Second, 250*time.Millisecond); err != nil {
		m.teardownFrom(ctx, stageProxy)
		return fmt.Errorf("sandbox startup: proxy never became ready: %w", err)
	}

	if m.topo.Sidecar != nil {
		if _, err := m.docker.StartContainer(ctx, m.topo.Bridge.Name, *m.topo.Sidecar, m.mat.WorkDir); err != nil {
			m.teardownFrom(ctx, stageProxy)
			return fmt.Errorf("sandbox startup: %w", err)
		}
	}

	if _, err := m.docker.StartContainer(ctx, m.topo.Bridge.Name, m.topo.Command, m.mat.WorkDir); err != nil {
		m.teardownFrom(ctx, stageSidecar)
		return fmt.Errorf("sandbox startup: %w", err)
	}

	m.ready = true
	m.log.Info().Str("run_id", m.topo.RunID).Msg("sandbox topology up")
	return nil
}

// StreamCommandLogs follows the command container's stdout/stderr.
func (m *Manager) StreamCommandLogs(ctx context.Context, stdout, stderr io.Writer) error {
	return m.docker.StreamLogs(ctx, m.topo.Command.Name, stdout, stderr)
}

// Supervise waits for the command container to exit while watching the
// proxy for a mid-run death (§5: "If the proxy container dies while the
// command container is still running, the orchestrator must fail the
// run" — exit code 4 is the orchestrator's concern, this just reports
// the fact).
func (m *Manager) Supervise(ctx context.Context) (RunResult, error) {
	type waitOutcome struct {
		code int
		err  error
	}
	cmdDone := make(chan waitOutcome, 1)
	go func() {
		code, err := m.docker.Wait(ctx, m.topo.Command.Name)
		cmdDone <- waitOutcome{code, err}
	}()

	proxyGone := make(chan struct{})
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go m.watchProxy(watchCtx, proxyGone)

	select {
	case out := <-cmdDone:
		if out.err != nil {
			return RunResult{}, fmt.Errorf("waiting for command container: %w", out.err)
		}
		return RunResult{ExitCode: out.code}, nil
	case <-proxyGone:
		return RunResult{ProxyDiedMid: true}, fmt.Errorf("proxy container exited while command container was still running")
	case <-ctx.Done():
		return RunResult{}, ctx.Err()
	}
}

// watchProxy polls the proxy container's liveness and closes done once
// it is no longer running (or can no longer be inspected).
func (m *Manager) watchProxy(ctx context.Context, done chan<- struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			running, err := m.docker.run(ctx, "inspect", "--format", "{{.State.Running}}", m.topo.Proxy.Name)
			if err != nil || running != "true" {
				close(done)
				return
			}
		}
	}
}

type teardownStage int

const (
	stageCommand teardownStage = iota
	stageSidecar
	stageProxy
	stageFilter
	stageBridge
)

// TeardownReport summarizes what Teardown actually did, so the
// orchestrator can log a single structured line per run.
type TeardownReport struct {
	ContainersRemoved  []string
	FilterRemoved      bool
	BridgeRemoved      bool
	WorkDirRemoved     bool
	PreservedArtifacts []string
	Errors             []error
}

// artifactGlobs are the work-directory patterns that count as
// inspectable run artifacts once --keep-artifacts preserves the work
// directory; used to report what was kept without walking the whole
// directory by hand.
var artifactGlobs = []string{"command-logs/**", "proxy-logs/**", "*.conf", "*.desc"}

// Teardown reverses the startup order exactly (§5): command, sidecar,
// proxy, filter chain, bridge, then the work directory. Every step is
// attempted even if an earlier step fails; all errors are collected and
// returned together so a partial teardown never masks the rest.
func (m *Manager) Teardown(ctx context.Context, preserveWorkDir bool) TeardownReport {
	report := m.teardownFrom(ctx, stageCommand)
	if !preserveWorkDir {
		if err := os.RemoveAll(m.mat.WorkDir); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("removing work directory: %w", err))
		} else {
			report.WorkDirRemoved = true
		}
		return report
	}

	report.PreservedArtifacts = listPreservedArtifacts(m.mat.WorkDir)
	m.log.Info().Int("count", len(report.PreservedArtifacts)).Str("work_dir", m.mat.WorkDir).Msg("artifacts preserved")
	return report
}

// listPreservedArtifacts globs the materialized work directory for
// the files worth surfacing to an operator inspecting a kept run,
// matching each pattern in artifactGlobs relative to workDir.
func listPreservedArtifacts(workDir string) []string {
	var matches []string
	for _, pattern := range artifactGlobs {
		found, err := doublestar.FilepathGlob(filepath.Join(workDir, pattern))
		if err != nil {
			continue
		}
		matches = append(matches, found...)
	}
	return matches
}

// teardownFrom tears down every stage from `from` through the bridge,
// in reverse-startup order, collecting rather than stopping on errors.
func (m *Manager) teardownFrom(ctx context.Context, from teardownStage) TeardownReport {
	var report TeardownReport

	if from <= stageCommand {
		if err := m.docker.StopContainer(ctx, m.topo.Command.Name); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("stopping command container: %w", err))
		} else {
			report.ContainersRemoved = append(report.ContainersRemoved, m.topo.Command.Name)
		}
	}
	if from <= stageSidecar && m.topo.Sidecar != nil {
		if err := m.docker.StopContainer(ctx, m.topo.Sidecar.Name); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("stopping sidecar container: %w", err))
		} else {
			report.ContainersRemoved = append(report.ContainersRemoved, m.topo.Sidecar.Name)
		}
	}
	if from <= stageProxy {
		if err := m.docker.StopContainer(ctx, m.topo.Proxy.Name); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("stopping proxy container: %w", err))
		} else {
			report.ContainersRemoved = append(report.ContainersRemoved, m.topo.Proxy.Name)
		}
	}
	if from <= stageFilter {
		if err := m.installer.Remove(ctx, m.chainName, m.bridgeIf); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("removing host filter chain: %w", err))
		} else {
			report.FilterRemoved = true
		}
	}
	if from <= stageBridge {
		if err := m.docker.RemoveBridge(ctx, m.topo.Bridge.Name); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("removing bridge: %w", err))
		} else {
			report.BridgeRemoved = true
		}
	}

	m.log.Info().Int("errors", len(report.Errors)).Msg("sandbox teardown complete")
	return report
}
