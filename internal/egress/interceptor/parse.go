package interceptor

import (
	"strconv"
	"strings"
)

// valueTakingFlags are the docker run flags that consume a following
// argv token as their value when not given in "--flag=value" form.
// This mirrors, in spirit, the teacher's tokenizeCommand's need to
// know which tokens belong together before making a decision — there
// it was quoted shell words, here it's flag/value pairs.
var valueTakingFlags = map[string]bool{
	"--network": true, "--net": true,
	"--add-host": true,
	"-e": true, "--env": true,
	"-v": true, "--volume": true,
	"-p": true, "--publish": true,
	"--name": true,
	"-u": true, "--user": true,
	"--entrypoint": true,
	"-w": true, "--workdir": true,
}

// Config carries the values the interceptor injects when rewriting an
// allowed invocation.
type Config struct {
	BridgeNetwork string
	ProxyIP       string
	ProxyPort     int
	// NATPreamble is the shell fragment that replays the in-sandbox
	// NAT installation; it is prepended to the nested container's
	// command vector when one was supplied.
	NATPreamble string
}

// Decide parses a container-launch invocation's argv (excluding
// argv[0], the tool name itself) and produces the InterceptDecision
// (§4.C.3). Only the `run` subcommand is inspected; everything else
// is Passthrough.
func Decide(argv []string, cfg Config) Decision {
	if len(argv) == 0 || argv[0] != "run" {
		return Decision{Kind: Passthrough, OriginalArgs: argv}
	}
	args := argv[1:]

	for _, a := range args {
		if a == "--privileged" {
			return Decision{Kind: Deny, Reason: "privileged launches are not allowed", OriginalArgs: argv}
		}
	}
	for _, a := range args {
		if a == "--add-host" || strings.HasPrefix(a, "--add-host=") {
			return Decision{Kind: Deny, Reason: "custom /etc/hosts entries are not allowed: enables DNS poisoning", OriginalArgs: argv}
		}
	}
	if net, ok := networkValue(args); ok && net == "host" {
		return Decision{Kind: Deny, Reason: "host networking is not allowed: bypasses sandbox", OriginalArgs: argv}
	}

	rewritten, cmdVector, hadCmdVector := rewrite(args, cfg)
	d := Decision{Kind: Allow, RewrittenArgs: append([]string{"run"}, rewritten...), OriginalArgs: argv}
	if !hadCmdVector {
		d.NATPreambleSkipped = true
	} else {
		_ = cmdVector // consumed by rewrite's embedding of the preamble
	}
	return d
}

// networkValue scans args for --network/--net, in either "--flag
// value" or "--flag=value" form, and returns the last one seen (the
// same precedence docker itself gives repeated flags).
func networkValue(args []string) (string, bool) {
	value, found := "", false
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--network" || a == "--net":
			if i+1 < len(args) {
				value, found = args[i+1], true
				i++
			}
		case strings.HasPrefix(a, "--network="):
			value, found = strings.TrimPrefix(a, "--network="), true
		case strings.HasPrefix(a, "--net="):
			value, found = strings.TrimPrefix(a, "--net="), true
		}
	}
	return value, found
}

// rewrite strips any user-supplied network flag, forces the sandbox
// bridge network, injects proxy environment variables, and splits off
// the trailing command vector (if any) so the caller can wrap it with
// the NAT-replay preamble.
func rewrite(args []string, cfg Config) (out []string, cmdVector []string, hadCmdVector bool) {
	image := ""
	imageIdx := -1

	i := 0
	for ; i < len(args); i++ {
		a := args[i]
		if a == "--network" || a == "--net" || strings.HasPrefix(a, "--network=") || strings.HasPrefix(a, "--net=") {
			if a == "--network" || a == "--net" {
				i++ // skip the value too
			}
			continue // dropped: replaced below
		}
		if !strings.HasPrefix(a, "-") {
			image = a
			imageIdx = i
			break
		}
		out = append(out, a)
		if valueTakingFlags[a] && i+1 < len(args) {
			out = append(out, args[i+1])
			i++
		}
	}

	out = append(out, "--network="+cfg.BridgeNetwork)
	for _, kv := range proxyEnvPairs(cfg) {
		out = append(out, "-e", kv)
	}

	if imageIdx == -1 {
		return out, nil, false
	}
	out = append(out, image)
	rest := args[imageIdx+1:]
	if len(rest) == 0 {
		return out, nil, false
	}
	wrapped := append([]string{"sh", "-c", cfg.NATPreamble + " && exec " + quoteArgv(rest)})
	return append(out, wrapped...), rest, true
}

// quoteArgv single-quotes each argument so the nested command vector
// survives being embedded in the "sh -c" string unchanged: without
// this, an argument containing a space or shell metacharacter would
// be IFS-split or reinterpreted by the nested shell instead of being
// passed through as the single argv entry the caller supplied.
func quoteArgv(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quoteArg(a)
	}
	return strings.Join(quoted, " ")
}

func quoteArg(a string) string {
	if a == "" {
		return "''"
	}
	needsQuoting := false
	for _, c := range a {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.' || c == '/' || c == ':' || c == '=' || c == '@':
		default:
			needsQuoting = true
		}
		if needsQuoting {
			break
		}
	}
	if !needsQuoting {
		return a
	}
	return "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
}

func proxyEnvPairs(cfg Config) []string {
	target := cfg.ProxyIP
	if cfg.ProxyPort != 0 {
		target = "http://" + cfg.ProxyIP + portSuffix(cfg.ProxyPort)
	}
	return []string{
		"HTTP_PROXY=" + target,
		"HTTPS_PROXY=" + target,
		"http_proxy=" + target,
		"https_proxy=" + target,
	}
}

func portSuffix(port int) string {
	return ":" + strconv.Itoa(port)
}
