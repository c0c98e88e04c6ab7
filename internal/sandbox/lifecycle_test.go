package sandbox

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestListPreservedArtifactsFindsNestedLogsAndConfig(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel string) {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	mustWrite("proxy.conf")
	mustWrite("topology.desc")
	mustWrite("command-logs/stdout.log")
	mustWrite("proxy-logs/access.log")
	mustWrite("command-entrypoint.sh") // not matched by any artifact glob

	got := listPreservedArtifacts(dir)
	sort.Strings(got)

	want := map[string]bool{
		filepath.Join(dir, "proxy.conf"):                true,
		filepath.Join(dir, "topology.desc"):              true,
		filepath.Join(dir, "command-logs/stdout.log"):    true,
		filepath.Join(dir, "proxy-logs/access.log"):      true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d preserved artifacts, got %d: %v", len(want), len(got), got)
	}
	for _, g := range got {
		if !want[g] {
			t.Errorf("unexpected artifact reported: %s", g)
		}
	}
}
