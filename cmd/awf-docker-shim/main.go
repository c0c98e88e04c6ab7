// Package main implements the nested-launch interceptor binary.
// Installed as the first "docker" on the command container's PATH
// (the real binary renamed alongside it per §4.C.3), it parses the
// invocation, decides Allow/Deny/Passthrough, and execs the real
// binary with the original or rewritten arguments — or refuses to run
// at all on Deny.
package main

import (
	"fmt"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/agentfence/awf/internal/egress/interceptor"
	"github.com/agentfence/awf/internal/metrics"
)

const (
	envRealDockerBin   = "AWF_REAL_DOCKER_BIN"
	envBridgeNetwork   = "AWF_BRIDGE_NETWORK"
	envProxyIP         = "AWF_PROXY_IP"
	envProxyPort       = "AWF_PROXY_PORT"
	envNATPreamble     = "AWF_NAT_PREAMBLE"
	envNestedLaunchLog = "AWF_NESTED_LAUNCH_LOG"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cfg := configFromEnv()

	decision := interceptor.Decide(argv, cfg)
	logDecision(decision)

	switch decision.Kind {
	case interceptor.Deny:
		metrics.EgressDenialsTotal.WithLabelValues("interceptor").Inc()
		fmt.Fprintf(os.Stderr, "awf-docker-shim: %s\n", decision.String())
		return 1
	case interceptor.Passthrough:
		return execReal(argv)
	default: // Allow
		if decision.NATPreambleSkipped {
			fmt.Fprintf(os.Stderr, "awf-docker-shim: warning: nested launch supplied no command vector, NAT preamble was not replayed into it\n")
		}
		return execReal(decision.RewrittenArgs)
	}
}

func configFromEnv() interceptor.Config {
	port, _ := strconv.Atoi(os.Getenv(envProxyPort))
	return interceptor.Config{
		BridgeNetwork: os.Getenv(envBridgeNetwork),
		ProxyIP:       os.Getenv(envProxyIP),
		ProxyPort:     port,
		NATPreamble:   os.Getenv(envNATPreamble),
	}
}

// execReal replaces this process with the real container-tool binary
// so the shim adds no extra process layer to signal handling or exit
// codes (§4.C.3's shim is transparent on Allow/Passthrough).
func execReal(args []string) int {
	realBin := os.Getenv(envRealDockerBin)
	if realBin == "" {
		realBin = "/usr/bin/docker.real"
	}
	argv := append([]string{realBin}, args...)
	if err := syscall.Exec(realBin, argv, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "awf-docker-shim: exec %s: %v\n", realBin, err)
		return 1
	}
	return 0 // unreachable: syscall.Exec only returns on error
}

func logDecision(d interceptor.Decision) {
	path := os.Getenv(envNestedLaunchLog)
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_ = interceptor.AppendLog(f, d, time.Now())
}
