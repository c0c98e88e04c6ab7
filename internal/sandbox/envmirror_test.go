package sandbox

import "testing"

func TestMirrorEnvStripsProtectedCredentials(t *testing.T) {
	host := []string{"HOME=/root", "GITHUB_TOKEN=secret123", "PATH=/usr/bin"}
	out := MirrorEnv(host)
	for _, e := range out {
		if e == "GITHUB_TOKEN=secret123" {
			t.Fatalf("expected GITHUB_TOKEN to be stripped from mirrored env, got %v", out)
		}
	}
	if len(out) != 2 {
		t.Errorf("expected 2 surviving entries, got %d: %v", len(out), out)
	}
}

func TestMirrorEnvStripsDangerousPrefixes(t *testing.T) {
	host := []string{"LD_PRELOAD=/evil.so", "DYLD_INSERT_LIBRARIES=/evil.dylib", "LANG=C"}
	out := MirrorEnv(host)
	if len(out) != 1 || out[0] != "LANG=C" {
		t.Errorf("expected only LANG=C to survive, got %v", out)
	}
}

func TestMirrorEnvPassesThroughOrdinaryVars(t *testing.T) {
	host := []string{"HOME=/root", "SHELL=/bin/bash"}
	out := MirrorEnv(host)
	if len(out) != 2 {
		t.Errorf("expected both vars to survive, got %v", out)
	}
}
