// Command awf-preload builds libawfpreload.so, a credential-protection
// shim (§4.B). When LD_PRELOAD'd into the command container's user
// process it resolves the real getenv/secure_getenv via dlsym(RTLD_NEXT)
// and turns reads of protected names into one-shot accesses: the
// first read returns the live value and then clears it from the
// process's live environment array; later reads return a cached copy
// from the Go side so callers that legitimately read the same
// variable twice keep working (§4.B rationale).
//
// Build with: go build -buildmode=c-shared -o libawfpreload.so ./cmd/awf-preload
package main

/*
#cgo LDFLAGS: -ldl
#define _GNU_SOURCE
#include <stdlib.h>
#include <string.h>
#include <dlfcn.h>

static char *(*real_getenv)(const char *) = NULL;
static char *(*real_secure_getenv)(const char *) = NULL;

static void resolve_real_symbols(void) {
	real_getenv = (char *(*)(const char *))dlsym(RTLD_NEXT, "getenv");
	real_secure_getenv = (char *(*)(const char *))dlsym(RTLD_NEXT, "secure_getenv");
}

static char *call_real_getenv(const char *name) {
	if (real_getenv == NULL) {
		resolve_real_symbols();
	}
	if (real_getenv == NULL) {
		// §4.B: no safe fallback — abort rather than risk a silent,
		// unprotected passthrough.
		abort();
	}
	return real_getenv(name);
}

static char *call_real_secure_getenv(const char *name) {
	if (real_secure_getenv == NULL) {
		resolve_real_symbols();
	}
	if (real_secure_getenv == NULL) {
		abort();
	}
	return real_secure_getenv(name);
}

static void unset_from_environ(const char *name) {
	unsetenv(name);
}
*/
import "C"

import (
	"github.com/agentfence/awf/internal/preload"
)

//export getenv
func getenv(name *C.char) *C.char {
	goName := C.GoString(name)
	reg := preload.Init()
	if !reg.IsProtected(goName) {
		return C.call_real_getenv(name)
	}
	real := C.call_real_getenv(name)
	if real == nil {
		return nil
	}
	liveValue := C.GoString(real)
	res := reg.Access(goName, liveValue)
	if res.Scrub {
		C.unset_from_environ(name)
	}
	return C.CString(res.Value)
}

//export secure_getenv
func secure_getenv(name *C.char) *C.char {
	goName := C.GoString(name)
	reg := preload.Init()
	if !reg.IsProtected(goName) {
		return C.call_real_secure_getenv(name)
	}
	real := C.call_real_secure_getenv(name)
	if real == nil {
		// secure_getenv's documented semantics (nothing under elevated
		// privilege) are preserved as-is; the one-shot behavior only
		// applies when the underlying call itself would have returned
		// a value.
		return nil
	}
	liveValue := C.GoString(real)
	res := reg.Access(goName, liveValue)
	if res.Scrub {
		C.unset_from_environ(name)
	}
	return C.CString(res.Value)
}

func main() {}
