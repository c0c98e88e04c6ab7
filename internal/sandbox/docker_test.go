package sandbox

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestStartContainerRefusesPrivileged(t *testing.T) {
	d := NewDockerDriver(zerolog.Nop())
	spec := ContainerSpec{Name: "awf-test-privileged", Image: "scratch", Privileged: true}
	_, err := d.StartContainer(context.Background(), "br-test", spec, t.TempDir())
	if err == nil {
		t.Fatalf("expected StartContainer to refuse a privileged ContainerSpec")
	}
}

func TestResolveDockerHostPrefersEnvVar(t *testing.T) {
	t.Setenv("DOCKER_HOST", "tcp://example.invalid:2375")
	if got := resolveDockerHost(); got != "tcp://example.invalid:2375" {
		t.Errorf("expected DOCKER_HOST to take precedence, got %q", got)
	}
}
