package apperr

import (
	"errors"
	"testing"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{&InvalidSpec{Reason: "x"}, 1},
		{&EnvironmentMissing{Reason: "x"}, 2},
		{&SessionExists{Name: "s"}, 3},
		{&LaunchFailed{Worker: 0, Err: errors.New("x")}, 3},
		{&CoverageToolFailed{Stage: "merge", Err: errors.New("x")}, 5},
		{errors.New("unmapped"), 4},
	}
	for _, c := range cases {
		if got := ExitCode(c.err); got != c.want {
			t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestWrappedErrorsUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	e := &LaunchFailed{Worker: 1, Err: inner}
	if !errors.Is(e, inner) {
		t.Fatal("LaunchFailed should unwrap to its inner error")
	}
}
