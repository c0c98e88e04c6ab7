// Package interceptor implements the nested-launch interceptor
// (§4.C.3): the shim that shadows the real container-launch binary on
// the command container's executable search path. Its argument
// parser carries over the quote/paren-aware rigor of the teacher's
// shell-command tokenizer, adapted from "is this shell command prefix
// blocked" to "what does this docker run invocation actually do".
package interceptor

import "fmt"

// DecisionKind tags an InterceptDecision's variant.
type DecisionKind int

const (
	// Allow means the invocation is rewritten and should proceed.
	Allow DecisionKind = iota
	// Deny means the invocation must not proceed at all.
	Deny
	// Passthrough means the interceptor does not touch this
	// invocation (not a `run` subcommand).
	Passthrough
)

// Decision is the tagged variant produced per nested-launch call
// (§3 InterceptDecision). It is created per call and consumed
// immediately by the shim's caller, which either execs the rewritten
// argv, exits non-zero with the reason, or execs the original argv
// verbatim.
type Decision struct {
	Kind             DecisionKind
	RewrittenArgs    []string
	Reason           string
	OriginalArgs     []string
	NATPreambleSkipped bool
}

func (d Decision) String() string {
	switch d.Kind {
	case Allow:
		if d.NATPreambleSkipped {
			return "INJECTING (warning: no command vector supplied, NAT preamble skipped)"
		}
		return "INJECTING"
	case Deny:
		return fmt.Sprintf("BLOCKED: %s", d.Reason)
	default:
		return "PASSING THROUGH"
	}
}
