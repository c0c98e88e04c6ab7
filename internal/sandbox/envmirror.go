package sandbox

import (
	"os"
	"strings"

	"github.com/agentfence/awf/internal/preload"
)

// dangerousEnvPrefixes lists prefixes of environment variables that
// could subvert the command container's own dynamic linker if
// mirrored in from the invoking host (e.g. an LD_PRELOAD the host
// shell happens to have set). These are stripped unconditionally,
// independent of the protected credential set.
var dangerousEnvPrefixes = []string{"LD_", "DYLD_"}

// MirrorEnv builds the environment passed into the command
// container's entrypoint from the invoking host's environment (§6:
// "Consumed by the orchestrator: HOME ..."). It strips dynamic-linker
// hijack vectors and every name in the default protected credential
// set: those are explicitly not set into the container (§6). The
// preload library only guards protected names that are set inside the
// container later; it does not reintroduce the stripped values.
func MirrorEnv(hostEnv []string) []string {
	protected := make(map[string]bool)
	for _, n := range preload.DefaultProtectedSet() {
		protected[n] = true
	}

	out := make([]string, 0, len(hostEnv))
	for _, e := range hostEnv {
		key := e
		if idx := strings.IndexByte(e, '='); idx != -1 {
			key = e[:idx]
		}
		if protected[key] {
			continue
		}
		if hasDangerousPrefix(key) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func hasDangerousPrefix(key string) bool {
	for _, p := range dangerousEnvPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// HostEnviron is a thin indirection over os.Environ so callers (and
// tests) don't need to touch the real process environment directly.
func HostEnviron() []string {
	return os.Environ()
}
