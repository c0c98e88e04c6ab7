// Package awf is the public API for embedding the egress-filtering
// firewall orchestrator in another Go program, mirroring the
// teacher's pkg/fence facade: thin type aliases plus a handful of
// constructor functions over the internal packages.
package awf

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/agentfence/awf/internal/orchestrator"
	"github.com/agentfence/awf/internal/policy"
)

// Inputs configures one run.
type Inputs = orchestrator.Inputs

// Result reports a completed run's outcome.
type Result = orchestrator.Result

// ExitCode is the orchestrator's exit-code mapping (§4.E).
type ExitCode = orchestrator.ExitCode

const (
	ExitInternal         = orchestrator.ExitInternal
	ExitCompileFailure   = orchestrator.ExitCompileFailure
	ExitLifecycleFailure = orchestrator.ExitLifecycleFailure
	ExitProxyDiedMidRun  = orchestrator.ExitProxyDiedMidRun
	ExitSignalINT        = orchestrator.ExitSignalINT
	ExitSignalTERM       = orchestrator.ExitSignalTERM
)

// LoadDomainFile reads an allow/deny domain list from a JSON(C) or
// plain-text file, the format the CLI's --allow-file flag accepts.
func LoadDomainFile(path string) (allowed, blocked []string, err error) {
	return policy.LoadDomainFile(path)
}

// Run drives one full orchestrator state machine to completion:
// Parse -> Compile -> Materialize -> InstallFilter -> StartProxy ->
// StartSidecar? -> StartCommand -> Running -> CaptureExit -> Teardown
// -> Done. It always returns a Result even on error; callers that only
// want an exit code can ignore the error and use Result.ExitCode.
func Run(ctx context.Context, log zerolog.Logger, in Inputs, stdout, stderr io.Writer) (Result, error) {
	return orchestrator.Run(ctx, log, in, stdout, stderr)
}
