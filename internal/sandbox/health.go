package sandbox

import (
	"context"
	"fmt"
	"net"
	"time"
)

// TCPReadinessChecker waits for a container to accept TCP connections
// on a given address, the same shape as cuemby-warren's health package:
// a Result{Healthy, Message, CheckedAt, Duration} from a single dial,
// with WaitReady as the poll loop around it.
type TCPReadinessChecker struct {
	Address string
	Timeout time.Duration
}

// HealthResult mirrors cuemby-warren's health.Result.
type HealthResult struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

func NewTCPReadinessChecker(address string) *TCPReadinessChecker {
	return &TCPReadinessChecker{Address: address, Timeout: 2 * time.Second}
}

func (t *TCPReadinessChecker) Check(ctx context.Context) HealthResult {
	start := time.Now()
	dialer := &net.Dialer{Timeout: t.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.Address)
	if err != nil {
		return HealthResult{Healthy: false, Message: fmt.Sprintf("connection failed: %v", err), CheckedAt: start, Duration: time.Since(start)}
	}
	conn.Close()
	return HealthResult{Healthy: true, Message: fmt.Sprintf("tcp connection to %s succeeded", t.Address), CheckedAt: start, Duration: time.Since(start)}
}

// WaitReady polls a checker until it reports healthy, the deadline
// expires, or ctx is cancelled. Manager.Start uses it to gate the
// launch of the sidecar and command containers on the proxy being
// reachable (§5); the sidecar itself is not probed.
func WaitReady(ctx context.Context, checker *TCPReadinessChecker, deadline time.Duration, pollInterval time.Duration) (HealthResult, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last HealthResult
	for {
		last = checker.Check(ctx)
		if last.Healthy {
			return last, nil
		}
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("waiting for %s to become ready: %w", checker.Address, ctx.Err())
		case <-ticker.C:
		}
	}
}
