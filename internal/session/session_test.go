package session

import (
	"strings"
	"testing"

	"github.com/aflr-dev/aflr/internal/compose"
	"github.com/aflr-dev/aflr/internal/types"
)

func TestRenderTmuxIncludesEachWorkerCommand(t *testing.T) {
	plan := Plan{
		SessionName: "sess",
		Backend:     types.BackendTmux,
		RunDir:      "/tmp/aflr-sess",
		Workers: []compose.Command{
			{Argv: []string{"afl-fuzz", "-M", "sess_t"}},
			{Argv: []string{"afl-fuzz", "-S", "secondary_0_t"}},
		},
	}

	script, err := Render(plan)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(script, "new-session") {
		t.Fatal("tmux script missing new-session")
	}
	if !strings.Contains(script, "-M") || !strings.Contains(script, "-S") {
		t.Fatalf("tmux script missing worker commands: %s", script)
	}
	if strings.Count(script, "new-window") != 1 {
		t.Fatalf("expected exactly one new-window for a 2-worker plan, got script: %s", script)
	}
}

func TestRenderBackgroundsWorkerAndEchoesPidOnSeparateLines(t *testing.T) {
	plan := Plan{
		SessionName: "sess",
		Backend:     types.BackendTmux,
		RunDir:      "/tmp/aflr-sess",
		Workers: []compose.Command{
			{Argv: []string{"afl-fuzz", "-M", "sess_t"}},
		},
	}

	script, err := Render(plan)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(script, `\n`) {
		t.Fatalf("script should never contain a literal backslash-n keystroke sequence: %s", script)
	}
	if !strings.Contains(script, "afl-fuzz -M sess_t &") {
		t.Fatalf("expected the worker command to be backgrounded, got: %s", script)
	}
	if !strings.Contains(script, "echo $! > /tmp/aflr-sess/worker_0.pid") {
		t.Fatalf("expected a pid-echo line as its own send-keys call, got: %s", script)
	}
	if !strings.Contains(script, "send-keys -t sess:w0 \"fg\"") {
		t.Fatalf("expected fg to be sent as its own command, got: %s", script)
	}
}

func TestRenderScreenIncludesPidEcho(t *testing.T) {
	plan := Plan{
		SessionName: "sess",
		Backend:     types.BackendScreen,
		RunDir:      "/tmp/aflr-sess",
		Workers: []compose.Command{
			{Argv: []string{"afl-fuzz", "-M", "sess_t"}},
		},
	}

	script, err := Render(plan)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(script, "echo $! > /tmp/aflr-sess/worker_0.pid") {
		t.Fatalf("screen backend should also echo the worker pid, got: %s", script)
	}
}

func TestRenderScreenBackend(t *testing.T) {
	plan := Plan{
		SessionName: "sess",
		Backend:     types.BackendScreen,
		RunDir:      "/tmp/aflr-sess",
		Workers: []compose.Command{
			{Argv: []string{"afl-fuzz", "-M", "sess_t"}},
		},
	}

	script, err := Render(plan)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(script, "screen -dmS sess") {
		t.Fatalf("screen script missing session creation: %s", script)
	}
}
