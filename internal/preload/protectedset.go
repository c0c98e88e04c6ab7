// Package preload implements the pure-Go core of the credential
// preload library (§4.B): the protected-set table, the one-shot
// token state machine, and the single mutex guarding both. The cgo
// shim in cmd/awf-preload calls directly into this package so the
// state machine itself stays unit-testable without a C toolchain.
package preload

import "strings"

// xorKey obfuscates the compiled-in default protected-set list so
// that running `strings` over the built shared library does not
// reveal which variable names are protected at a glance. It is not a
// security boundary — only a deterrent to casual reconnaissance (§4.B).
const xorKey = 0x5a

func xorDecode(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = c ^ xorKey
	}
	return string(out)
}

// defaultProtectedSetEncoded holds the well-known credential variable
// names XOR-encoded as fixed byte literals. Encoding these ahead of
// time, rather than XOR'ing plaintext string literals at init, keeps
// the plaintext names out of the compiled library's rodata entirely —
// running `strings` over libawfpreload.so must not reveal them.
var defaultProtectedSetEncoded = [][]byte{
	{0x1d, 0x13, 0x0e, 0x12, 0x0f, 0x18, 0x05, 0x0e, 0x15, 0x11, 0x1f, 0x14},                                                 // GITHUB_TOKEN
	{0x1d, 0x12, 0x05, 0x0e, 0x15, 0x11, 0x1f, 0x14},                                                                         // GH_TOKEN
	{0x1d, 0x13, 0x0e, 0x16, 0x1b, 0x18, 0x05, 0x0e, 0x15, 0x11, 0x1f, 0x14},                                                 // GITLAB_TOKEN
	{0x15, 0x0a, 0x1f, 0x14, 0x1b, 0x13, 0x05, 0x1b, 0x0a, 0x13, 0x05, 0x11, 0x1f, 0x03},                                     // OPENAI_API_KEY
	{0x1b, 0x14, 0x0e, 0x12, 0x08, 0x15, 0x0a, 0x13, 0x19, 0x05, 0x1b, 0x0a, 0x13, 0x05, 0x11, 0x1f, 0x03},                   // ANTHROPIC_API_KEY
	{0x1b, 0x0d, 0x09, 0x05, 0x09, 0x1f, 0x19, 0x08, 0x1f, 0x0e, 0x05, 0x1b, 0x19, 0x19, 0x1f, 0x09, 0x09, 0x05, 0x11, 0x1f, 0x03}, // AWS_SECRET_ACCESS_KEY
	{0x1b, 0x0d, 0x09, 0x05, 0x09, 0x1f, 0x09, 0x09, 0x13, 0x15, 0x14, 0x05, 0x0e, 0x15, 0x11, 0x1f, 0x14},                   // AWS_SESSION_TOKEN
	{0x1b, 0x00, 0x0f, 0x08, 0x1f, 0x05, 0x19, 0x16, 0x13, 0x1f, 0x14, 0x0e, 0x05, 0x09, 0x1f, 0x19, 0x08, 0x1f, 0x0e},       // AZURE_CLIENT_SECRET
	{0x1d, 0x15, 0x15, 0x1d, 0x16, 0x1f, 0x05, 0x1b, 0x0a, 0x0a, 0x16, 0x13, 0x19, 0x1b, 0x0e, 0x13, 0x15, 0x14, 0x05, 0x19, 0x08, 0x1f, 0x1e, 0x1f, 0x14, 0x0e, 0x13, 0x1b, 0x16, 0x09}, // GOOGLE_APPLICATION_CREDENTIALS
	{0x14, 0x0a, 0x17, 0x05, 0x0e, 0x15, 0x11, 0x1f, 0x14},                                                                   // NPM_TOKEN
	{0x1e, 0x15, 0x19, 0x11, 0x1f, 0x08, 0x05, 0x0a, 0x1b, 0x09, 0x09, 0x0d, 0x15, 0x08, 0x1e},                               // DOCKER_PASSWORD
	{0x09, 0x16, 0x1b, 0x19, 0x11, 0x05, 0x0e, 0x15, 0x11, 0x1f, 0x14},                                                       // SLACK_TOKEN
	{0x09, 0x0e, 0x08, 0x13, 0x0a, 0x1f, 0x05, 0x09, 0x1f, 0x19, 0x08, 0x1f, 0x0e, 0x05, 0x11, 0x1f, 0x03},                   // STRIPE_SECRET_KEY
	{0x1e, 0x1b, 0x0e, 0x1b, 0x18, 0x1b, 0x09, 0x1f, 0x05, 0x0f, 0x08, 0x16},                                                 // DATABASE_URL
	{0x1b, 0x0a, 0x13, 0x05, 0x11, 0x1f, 0x03},                                                                               // API_KEY
	{0x1b, 0x19, 0x19, 0x1f, 0x09, 0x09, 0x05, 0x0e, 0x15, 0x11, 0x1f, 0x14},                                                 // ACCESS_TOKEN
}

// DefaultProtectedSet returns the compiled-in default list of
// protected variable names, decoded.
func DefaultProtectedSet() []string {
	out := make([]string, len(defaultProtectedSetEncoded))
	for i, enc := range defaultProtectedSetEncoded {
		out[i] = xorDecode(enc)
	}
	return out
}

// ProtectedSetConfigVar is the environment variable that, when
// present and non-empty, overrides the default protected set.
const ProtectedSetConfigVar = "AWF_PROTECTED_SET"

// ResolveProtectedSet implements §4.B's override rule: a non-empty,
// whitespace-trimmed, comma-separated AWF_PROTECTED_SET overrides the
// default list; if trimming leaves no valid entries, fall back to the
// default rather than silently disabling protection.
func ResolveProtectedSet(overrideValue string) []string {
	trimmed := strings.TrimSpace(overrideValue)
	if trimmed == "" {
		return DefaultProtectedSet()
	}
	var out []string
	for _, part := range strings.Split(trimmed, ",") {
		name := strings.TrimSpace(part)
		if name != "" {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return DefaultProtectedSet()
	}
	return out
}
