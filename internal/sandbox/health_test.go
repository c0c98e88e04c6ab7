package sandbox

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestTCPReadinessCheckerDetectsOpenPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	checker := NewTCPReadinessChecker(ln.Addr().String())
	result := checker.Check(context.Background())
	if !result.Healthy {
		t.Errorf("expected healthy result for listening port, got %+v", result)
	}
}

func TestTCPReadinessCheckerReportsUnhealthyWhenNothingListens(t *testing.T) {
	checker := NewTCPReadinessChecker("127.0.0.1:1")
	checker.Timeout = 100 * time.Millisecond
	result := checker.Check(context.Background())
	if result.Healthy {
		t.Errorf("expected unhealthy result when nothing is listening")
	}
	if result.Message == "" {
		t.Errorf("expected a failure message explaining why")
	}
}

func TestWaitReadySucceedsOnceListenerIsUp(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	checker := NewTCPReadinessChecker(ln.Addr().String())
	result, err := WaitReady(context.Background(), checker, time.Second, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Healthy {
		t.Errorf("expected healthy result, got %+v", result)
	}
}

func TestWaitReadyTimesOutWhenNothingListens(t *testing.T) {
	checker := NewTCPReadinessChecker("127.0.0.1:1")
	checker.Timeout = 20 * time.Millisecond
	_, err := WaitReady(context.Background(), checker, 80*time.Millisecond, 20*time.Millisecond)
	if err == nil {
		t.Fatalf("expected a deadline-exceeded error")
	}
}
