package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentfence/awf/internal/metrics"
)

// DockerDriver drives the container tool (docker) via exec.CommandContext,
// the same shelling-out approach as the teacher's DockerRunner: build an
// argv slice from trusted, internally-constructed values, never from raw
// user input, and run it with a context so callers can cancel.
type DockerDriver struct {
	log        zerolog.Logger
	dockerHost string
}

// NewDockerDriver resolves DOCKER_HOST the way the teacher does: respect
// an explicit env var, else ask the active docker context, else let the
// docker CLI fall back to its compiled-in default.
func NewDockerDriver(log zerolog.Logger) *DockerDriver {
	return &DockerDriver{log: log, dockerHost: resolveDockerHost()}
}

func resolveDockerHost() string {
	if h := os.Getenv("DOCKER_HOST"); h != "" {
		return h
	}
	out, err := exec.Command("docker", "context", "inspect", "--format", "{{.Endpoints.docker.Host}}").Output()
	if err == nil {
		if host := strings.TrimSpace(string(out)); host != "" {
			return host
		}
	}
	return ""
}

func (d *DockerDriver) cmd(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "docker", args...) // #nosec G204 -- args are internally constructed, never raw user input
	if d.dockerHost != "" {
		cmd.Env = append(os.Environ(), "DOCKER_HOST="+d.dockerHost)
	}
	return cmd
}

func (d *DockerDriver) run(ctx context.Context, args ...string) (string, error) {
	cmd := d.cmd(ctx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("docker %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// CreateBridge creates the run's private bridge network with a fixed
// subnet, so the three containers can be assigned fixed IPs.
func (d *DockerDriver) CreateBridge(ctx context.Context, b BridgeSpec) error {
	_, err := d.run(ctx, "network", "create", "--driver", "bridge", "--subnet", b.Subnet, b.Name)
	if err != nil {
		return fmt.Errorf("creating bridge %s: %w", b.Name, err)
	}
	d.log.Info().Str("bridge", b.Name).Str("subnet", b.Subnet).Msg("sandbox bridge created")
	return nil
}

// RemoveBridge tears the bridge down. Best-effort: callers proceeding
// through teardown should log and continue, never abort, on error.
func (d *DockerDriver) RemoveBridge(ctx context.Context, name string) error {
	_, err := d.run(ctx, "network", "rm", name)
	return err
}

// StartContainer launches one ContainerSpec as a detached container
// attached to the run's bridge at its fixed IP, mirroring the teacher's
// buildDockerArgs shape: deny-by-default flags first, then opt-ins.
func (d *DockerDriver) StartContainer(ctx context.Context, bridge string, spec ContainerSpec, mountRoot string) (string, error) {
	args := []string{"run", "-d",
		"--name", spec.Name,
		"--network", bridge,
		"--ip", spec.FixedIP,
		"--cap-drop", "ALL",
		"--security-opt", "no-new-privileges",
	}

	for _, c := range spec.CapAdd {
		args = append(args, "--cap-add", c)
	}
	for _, c := range spec.CapDrop {
		args = append(args, "--cap-drop", c)
	}
	if spec.Privileged {
		// Never actually set: the orchestrator must reject any
		// ContainerSpec with Privileged=true before reaching here.
		metrics.ContainerStartsTotal.WithLabelValues(string(spec.Role), "refused").Inc()
		return "", fmt.Errorf("refusing to start %s: privileged containers are forbidden", spec.Name)
	}
	if spec.User != "" {
		args = append(args, "--user", spec.User)
	}
	for _, m := range spec.Mounts {
		flag := "rw"
		if m.ReadOnly {
			flag = "ro"
		}
		args = append(args, "-v", fmt.Sprintf("%s/%s:%s:%s", mountRoot, m.Source, m.Destination, flag))
	}
	for _, e := range spec.Env {
		args = append(args, "-e", e)
	}
	args = append(args, spec.Image)
	args = append(args, spec.Command...)

	id, err := d.run(ctx, args...)
	if err != nil {
		metrics.ContainerStartsTotal.WithLabelValues(string(spec.Role), "failure").Inc()
		return "", fmt.Errorf("starting container %s: %w", spec.Name, err)
	}
	metrics.ContainerStartsTotal.WithLabelValues(string(spec.Role), "success").Inc()
	d.log.Info().Str("container", spec.Name).Str("role", string(spec.Role)).Str("id", id).Msg("container started")
	return id, nil
}

// StopContainer stops and removes a container, best-effort.
func (d *DockerDriver) StopContainer(ctx context.Context, name string) error {
	_, stopErr := d.run(ctx, "stop", "-t", "5", name)
	_, rmErr := d.run(ctx, "rm", "-f", name)
	if stopErr != nil {
		return stopErr
	}
	return rmErr
}

// Wait blocks until the named container exits and returns its exit code.
func (d *DockerDriver) Wait(ctx context.Context, name string) (int, error) {
	out, err := d.run(ctx, "wait", name)
	if err != nil {
		return -1, err
	}
	var code int
	if _, err := fmt.Sscanf(out, "%d", &code); err != nil {
		return -1, fmt.Errorf("parsing exit code from %q: %w", out, err)
	}
	return code, nil
}

// StreamLogs follows a container's stdout/stderr until it exits or ctx
// is cancelled. docker demultiplexes the two streams for a non-tty
// container, so they arrive on stdout/stderr in source order (§5:
// "no reordering between stdout and stderr beyond what the container
// runtime emits").
func (d *DockerDriver) StreamLogs(ctx context.Context, name string, stdout, stderr io.Writer) error {
	cmd := d.cmd(ctx, "logs", "-f", name)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Inspect returns the raw `docker inspect` JSON for a container or
// network, used by health probes and diagnostics.
func (d *DockerDriver) Inspect(ctx context.Context, name string) (string, error) {
	return d.run(ctx, "inspect", name)
}
