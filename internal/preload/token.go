package preload

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// DiagnosticModeVar is the environment variable that, when set to the
// exact value "1", disables scrubbing and only logs interceptions.
const DiagnosticModeVar = "AWF_PRELOAD_DIAGNOSTIC"

// tokenState is the state of a single protected name.
type tokenState int

const (
	stateUnread tokenState = iota
	stateCleared
)

type tokenEntry struct {
	state  tokenState
	cached string
}

// Registry is the single piece of global, mutex-guarded state the
// interception surface shares: the protected-set membership test, the
// per-name access flags, and the cached values (§9 Design Notes:
// "global mutable state ... is unavoidable because the interception
// surface is itself global"). The critical section always covers both
// the cache update and (conceptually) the environment-array mutation
// the caller performs under Access's hold, so property §8.6/§8.7 holds
// even under concurrent getenv calls from multiple threads.
type Registry struct {
	mu         sync.Mutex
	protected  map[string]bool
	entries    map[string]*tokenEntry
	diagnostic bool
	log        io.Writer
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Init performs the one-time initialization described in §4.B: it
// must run exactly once, on first interception call, via a one-time
// initializer primitive (sync.Once here plays the role the spec
// assigns to a C-level pthread_once/std::call_once).
func Init() *Registry {
	defaultRegistryOnce.Do(func() {
		names := ResolveProtectedSet(os.Getenv(ProtectedSetConfigVar))
		diag := os.Getenv(DiagnosticModeVar) == "1"
		defaultRegistry = NewRegistry(names, diag, os.Stderr)
	})
	return defaultRegistry
}

// NewRegistry builds a Registry directly, bypassing the process-wide
// one-time initializer. The cgo shim never calls this; it exists so
// the one-shot-token state machine can be exercised by tests without
// the global-singleton indirection Init provides.
func NewRegistry(protectedNames []string, diagnostic bool, log io.Writer) *Registry {
	protected := make(map[string]bool, len(protectedNames))
	for _, n := range protectedNames {
		protected[n] = true
	}
	r := &Registry{
		protected:  protected,
		entries:    make(map[string]*tokenEntry, len(protectedNames)),
		diagnostic: diagnostic,
		log:        log,
	}
	if diagnostic {
		fmt.Fprintln(r.log, "[awf-preload] DIAGNOSTIC MODE: environment scrubbing is DISABLED, interceptions are logged only")
	}
	return r
}

// IsProtected reports whether name is in the active protected set.
func (r *Registry) IsProtected(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.protected[name]
}

// AccessResult tells the cgo shim what to do with a getenv call it
// intercepted.
type AccessResult struct {
	// Value is what the caller should return from getenv: the live
	// value on the first access, the cached copy afterwards. Only
	// protected names with a live value reach Access.
	Value string
	// Scrub is true the first time a protected name is accessed in
	// non-diagnostic mode: the shim must remove NAME= from the live
	// environ array after returning Value.
	Scrub bool
}

// Access implements the one-shot read for a protected name: first
// call returns the real value and (unless diagnostic mode is active)
// instructs the caller to scrub it from the live environment; every
// later call returns the cached copy with Scrub=false, since the
// variable is already gone from the live array.
func (r *Registry) Access(name, liveValue string) AccessResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[name]
	if !exists {
		e = &tokenEntry{state: stateUnread, cached: liveValue}
		r.entries[name] = e
	}

	switch e.state {
	case stateUnread:
		e.state = stateCleared
		if r.diagnostic {
			fmt.Fprintf(r.log, "[awf-preload] %s: accessed (diagnostic mode, not cleared)\n", name)
			return AccessResult{Value: e.cached, Scrub: false}
		}
		fmt.Fprintf(r.log, "[awf-preload] %s: accessed and cleared\n", name)
		return AccessResult{Value: e.cached, Scrub: true}
	default: // stateCleared
		fmt.Fprintf(r.log, "[awf-preload] %s: skipped because already cleared (returning cached value)\n", name)
		return AccessResult{Value: e.cached, Scrub: false}
	}
}
