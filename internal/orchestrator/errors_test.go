package orchestrator

import (
	"errors"
	"testing"
)

func TestRunErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	re := newRunError(string(StateCompile), ExitCompileFailure, inner)
	if !errors.Is(re, inner) {
		t.Fatalf("expected errors.Is to find the wrapped error")
	}
	if re.Code != ExitCompileFailure {
		t.Errorf("expected ExitCompileFailure, got %v", re.Code)
	}
}

func TestExitCodeMapping(t *testing.T) {
	cases := map[ExitCode]int{
		ExitInternal:         1,
		ExitCompileFailure:   2,
		ExitLifecycleFailure: 3,
		ExitProxyDiedMidRun:  4,
		ExitSignalINT:        130,
		ExitSignalTERM:       143,
	}
	for code, want := range cases {
		if int(code) != want {
			t.Errorf("expected %v to equal %d", code, want)
		}
	}
}
