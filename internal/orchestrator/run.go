// Package orchestrator implements the top-level state machine (§4.E):
// Parse -> Compile -> Materialize -> InstallFilter -> StartProxy ->
// StartSidecar? -> StartCommand -> Running -> CaptureExit -> Teardown
// -> Done. It owns the single cancellation token shared by the
// signal-handling task, the log-forwarding task, and command
// supervision, mirroring the teacher's exitCode-var-plus-deferred-
// cleanup cmd/fence/main.go shape, generalized from one process to a
// three-container topology.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentfence/awf/internal/metrics"
	"github.com/agentfence/awf/internal/policy"
	"github.com/agentfence/awf/internal/sandbox"
)

// Inputs is everything the orchestrator needs to drive one run. It is
// the union of the Policy Compiler's Inputs and the Lifecycle
// Manager's topology parameters (§3 data model: a PolicyArtifact owns
// its domain/port sequences; a SandboxTopology references it
// immutably).
type Inputs struct {
	RunID string // generated via uuid.NewString if empty

	AllowedDomains      []string
	BlockedDomains      []string
	AllowHostPorts      string
	DNSServers          []string
	BridgeSubnetPool    []string
	UsedSubnets         []string
	ProxyListenPort     int
	CredentialIsolation bool
	SSLBump             bool

	ProxyImage   string
	CommandImage string
	Command      []string
	Env          []string
	UID, GID     int

	WorkDirRoot   string
	KeepArtifacts bool
	Timeout       time.Duration // 0 means no timeout
}

// Result is what a completed run produced, for the CLI layer to turn
// into an os.Exit call and a final log line.
type Result struct {
	ExitCode ExitCode
	Teardown sandbox.TeardownReport
	RunID    string
}

// Run drives the full state machine to completion. Once Materialize
// has succeeded, every path (including errors) runs Teardown before
// returning. A Compile or Materialize failure returns without
// Teardown; a work directory partly written by a failed Materialize
// is left in place.
func Run(parent context.Context, log zerolog.Logger, in Inputs, stdout, stderr io.Writer) (Result, error) {
	start := time.Now()
	if in.RunID == "" {
		in.RunID = uuid.NewString()
	}
	log = log.With().Str("run_id", in.RunID).Logger()

	ctx, stop, exitOnSignal := withSignalCancellation(parent)
	defer stop()
	if in.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.Timeout)
		defer cancel()
	}

	state := StateParse
	log.Info().Str("state", string(state)).Msg("run starting")

	artifact, runErr := compileStage(&state, in)
	if runErr != nil {
		return finishEarly(&state, runErr, exitOnSignal, start, in.RunID)
	}

	_, _, mgr, runErr := materializeStage(ctx, &state, log, in, artifact)
	if runErr != nil {
		return finishEarly(&state, runErr, exitOnSignal, start, in.RunID)
	}

	if runErr = startStage(ctx, &state, mgr, artifact); runErr != nil {
		report := mgr.Teardown(context.WithoutCancel(ctx), in.KeepArtifacts)
		res, err := finishEarly(&state, runErr, exitOnSignal, start, in.RunID)
		res.Teardown = report
		return res, err
	}

	result, supErr := runningStage(ctx, &state, mgr, stdout, stderr)
	tearResult := teardownAndFinish(ctx, &state, log, mgr, in.KeepArtifacts, start, in.RunID)

	if sig := exitOnSignal(); sig != 0 {
		metrics.RunsTotal.WithLabelValues("cancelled").Inc()
		return Result{ExitCode: ExitCode(sig), Teardown: tearResult.Teardown, RunID: in.RunID}, fmt.Errorf("run cancelled by signal")
	}
	if supErr != nil {
		code := ExitInternal
		if result.ProxyDiedMid {
			code = ExitProxyDiedMidRun
		}
		metrics.RunsTotal.WithLabelValues(string(code)).Inc()
		return Result{ExitCode: code, Teardown: tearResult.Teardown, RunID: in.RunID}, newRunError(string(StateRunning), code, supErr)
	}

	metrics.RunsTotal.WithLabelValues("command_completed").Inc()
	metrics.RunDuration.WithLabelValues("command_completed").Observe(time.Since(start).Seconds())
	return Result{ExitCode: ExitCode(result.ExitCode), Teardown: tearResult.Teardown, RunID: in.RunID}, nil
}

// finishEarly handles every error path that aborts before the command
// container ever starts (Compile/Materialize/startup failures), and
// the signal-during-those-stages race.
func finishEarly(state *State, runErr error, exitOnSignal func() int, start time.Time, runID string) (Result, error) {
	if sig := exitOnSignal(); sig != 0 {
		metrics.RunsTotal.WithLabelValues("cancelled").Inc()
		return Result{ExitCode: ExitCode(sig), RunID: runID}, fmt.Errorf("run cancelled by signal")
	}

	metrics.RunsTotal.WithLabelValues(string(*state)).Inc()
	metrics.RunDuration.WithLabelValues(string(*state)).Observe(time.Since(start).Seconds())

	re, ok := runErr.(*RunError)
	if !ok {
		re = newRunError(string(*state), ExitInternal, runErr)
	}
	return Result{ExitCode: re.Code, RunID: runID}, re
}

func compileStage(state *State, in Inputs) (*policy.PolicyArtifact, error) {
	*state = StateCompile
	compileStart := time.Now()
	artifact, err := policy.Compile(policy.Inputs{
		AllowedDomains:      in.AllowedDomains,
		BlockedDomains:      in.BlockedDomains,
		AllowHostPorts:      in.AllowHostPorts,
		DNSServers:          in.DNSServers,
		BridgeSubnetPool:    in.BridgeSubnetPool,
		UsedSubnets:         in.UsedSubnets,
		ProxyListenPort:     in.ProxyListenPort,
		CredentialIsolation: in.CredentialIsolation,
		SSLBump:             in.SSLBump,
	})
	metrics.CompileDuration.Observe(time.Since(compileStart).Seconds())
	if err != nil {
		metrics.CompilesTotal.WithLabelValues("failure").Inc()
		return nil, newRunError(string(StateCompile), ExitCompileFailure, err)
	}
	metrics.CompilesTotal.WithLabelValues("success").Inc()
	return artifact, nil
}

func materializeStage(ctx context.Context, state *State, log zerolog.Logger, in Inputs, artifact *policy.PolicyArtifact) (sandbox.SandboxTopology, *sandbox.Materialized, *sandbox.Manager, error) {
	*state = StateMaterialize
	scrubbedEnv := sandbox.MirrorEnv(in.Env)
	topo := sandbox.BuildTopology(in.RunID, artifact, in.ProxyImage, in.CommandImage, in.Command, scrubbedEnv, in.CredentialIsolation)

	workDir := in.WorkDirRoot
	if workDir == "" {
		workDir = os.TempDir()
	}
	workDir = workDir + "/awf-" + in.RunID

	mat, err := sandbox.Materialize(workDir, artifact, topo, in.UID, in.GID)
	if err != nil {
		return topo, nil, nil, newRunError(string(StateMaterialize), ExitLifecycleFailure, err)
	}

	driver := sandbox.NewDockerDriver(log)
	mgr := sandbox.NewManager(log, driver, topo, mat)
	return topo, mat, mgr, nil
}

func startStage(ctx context.Context, state *State, mgr *sandbox.Manager, artifact *policy.PolicyArtifact) error {
	*state = StateInstallFilter
	if err := mgr.Start(ctx, artifact); err != nil {
		return newRunError(string(*state), ExitLifecycleFailure, err)
	}
	*state = StateStartCommand
	return nil
}

func runningStage(ctx context.Context, state *State, mgr *sandbox.Manager, stdout, stderr io.Writer) (sandbox.RunResult, error) {
	*state = StateRunning
	go func() { _ = mgr.StreamCommandLogs(ctx, stdout, stderr) }()

	result, err := mgr.Supervise(ctx)
	*state = StateCaptureExit
	return result, err
}

func teardownAndFinish(ctx context.Context, state *State, log zerolog.Logger, mgr *sandbox.Manager, keepArtifacts bool, start time.Time, runID string) Result {
	*state = StateTeardown
	teardownStart := time.Now()
	report := mgr.Teardown(context.WithoutCancel(ctx), keepArtifacts)
	metrics.TeardownDuration.Observe(time.Since(teardownStart).Seconds())
	if len(report.Errors) > 0 {
		metrics.TeardownErrorsTotal.Add(float64(len(report.Errors)))
		for _, e := range report.Errors {
			log.Warn().Err(e).Msg("teardown step failed")
		}
	}
	*state = StateDone
	return Result{Teardown: report, RunID: runID}
}

// withSignalCancellation wires SIGINT/SIGTERM into ctx's cancellation
// and returns a function reporting which ExitCode a received signal
// maps to (0 if none was received), mirroring the teacher's
// sigCount-based escalation in cmd/fence/main.go generalized to a
// single cancellation token shared by every cooperating task.
func withSignalCancellation(parent context.Context) (context.Context, context.CancelFunc, func() int) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var received atomic.Int32
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGINT:
				received.Store(int32(ExitSignalINT))
			case syscall.SIGTERM:
				received.Store(int32(ExitSignalTERM))
			}
			cancel()
		case <-done:
		}
	}()

	stop := func() {
		close(done)
		signal.Stop(sigChan)
		cancel()
	}
	exitOnSignal := func() int { return int(received.Load()) }
	return ctx, stop, exitOnSignal
}
