// Package session implements the Session Launcher: it renders a
// multiplexer (tmux or screen) startup script from a set of composed
// commands, refuses to clobber a same-named session, starts it, and waits
// for each worker to produce a pid file before declaring the launch
// successful. The rendered-script-then-exec shape follows
// original_source/runners/runner.rs's Session::run, adapted from upon
// templates to the standard library's text/template — a deliberate
// boundary spec.md §7 calls out explicitly, since this is the one place the
// tool needs a full templating language rather than string formatting.
package session

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/aflr-dev/aflr/internal/apperr"
	"github.com/aflr-dev/aflr/internal/compose"
	"github.com/aflr-dev/aflr/internal/types"
	"github.com/aflr-dev/aflr/pkg/telemetry"
	"github.com/aflr-dev/aflr/pkg/watchdog"
	"go.uber.org/zap"
)

// pidWait is the bounded time the Launcher waits for every worker's pid file
// to appear before declaring the launch failed. spec.md §4.4 requires at
// least 1.5s; tmux/screen window spawn plus afl-fuzz forkserver init can
// take noticeably longer on a loaded host, so the default leaves headroom.
const pidWait = 5 * time.Second

// Each worker's shell fragment is sent into its pane/window one command at a
// time, never as a single multi-line blob — tmux's send-keys and screen's
// stuff take one literal keystroke sequence, so a script with embedded
// newlines arrives as a single line with literal "\n" text rather than as
// separate Enter-terminated commands. The afl-fuzz invocation itself is
// backgrounded so `$!` captures its pid before the pid file is written, then
// `fg` brings it back to the foreground so the pane still shows (and the
// session still holds open) the running fuzzer.
var tmuxTemplate = template.Must(template.New("tmux").Parse(`#!/bin/sh
set -e
tmux new-session -d -s {{.Session}} -n w0
{{range $i, $w := .Windows}}{{if $i}}tmux new-window -t {{$.Session}} -n w{{$i}}
{{end}}{{range $w.Lines}}tmux send-keys -t {{$.Session}}:w{{$i}} {{printf "%q" .}} C-m
{{end}}{{end}}`))

var screenTemplate = template.Must(template.New("screen").Parse(`#!/bin/sh
set -e
screen -dmS {{.Session}}
{{range $i, $w := .Windows}}{{if $i}}screen -S {{$.Session}} -X screen{{end}}
{{range $w.StuffLines}}screen -S {{$.Session}} -p {{$i}} -X stuff {{printf "%q" .}}
{{end}}{{end}}`))

// windowData is the per-worker view passed to the launcher templates: the
// same shell commands rendered two ways, since tmux's send-keys wants a bare
// command per call (C-m supplies Enter) while screen's stuff wants the
// trailing newline baked into the string it types.
type windowData struct {
	Lines      []string // one shell command per tmux send-keys call
	StuffLines []string // same commands, each with a trailing "\n" for stuff
}

type launchData struct {
	Session string
	Windows []windowData
}

// Plan is the Launcher's input: one composed command per worker, plus the
// session identity and backend already resolved on the CampaignSpec.
type Plan struct {
	SessionName string
	Backend     types.Backend
	Workers     []compose.Command
	RunDir      string // scratch directory for pid files and rendered scripts
}

// Result is what a successful Launch returns.
type Result struct {
	Script    string   // the rendered launcher script that was executed
	PidFiles  []string
	PIDs      []int
}

type Launcher struct {
	logger          *zap.Logger
	watchdogFactory *watchdog.WatchDogFactory
	tracers         *telemetry.Factory
}

func New(logger *zap.Logger, wf *watchdog.WatchDogFactory) *Launcher {
	return &Launcher{logger: logger, watchdogFactory: wf, tracers: telemetry.NewFactory(logger)}
}

// Render produces the launcher script for plan without running anything.
// Used both by Launch and directly by a dry-run CLI invocation.
func Render(plan Plan) (string, error) {
	data := launchData{Session: plan.SessionName}
	for i, cmd := range plan.Workers {
		line := compose.Render(cmd)
		pidFile := filepath.Join(plan.RunDir, fmt.Sprintf("worker_%d.pid", i))
		lines := []string{
			line + " &",
			fmt.Sprintf("echo $! > %s", pidFile),
			"fg",
		}
		stuffLines := make([]string, len(lines))
		for j, l := range lines {
			stuffLines[j] = l + "\n"
		}
		data.Windows = append(data.Windows, windowData{Lines: lines, StuffLines: stuffLines})
	}

	var tmpl *template.Template
	switch plan.Backend {
	case types.BackendScreen:
		tmpl = screenTemplate
	default:
		tmpl = tmuxTemplate
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s launcher script: %w", plan.Backend, err)
	}
	return buf.String(), nil
}

// sessionExists checks whether a tmux/screen session with this name is
// already running, so Launch can refuse to clobber it rather than
// interleaving a second fuzzing campaign's output into the same windows.
func sessionExists(backend types.Backend, name string) bool {
	switch backend {
	case types.BackendScreen:
		out, _ := exec.Command("screen", "-ls").CombinedOutput()
		return strings.Contains(string(out), "."+name+"\t") || strings.Contains(string(out), "."+name+" ")
	default:
		err := exec.Command("tmux", "has-session", "-t", name).Run()
		return err == nil
	}
}

// Launch renders plan's script, refuses to run it if the session already
// exists, executes it, and blocks until every worker's pid file has
// appeared or pidWait elapses. On timeout it tears down whatever windows it
// started rather than leaving a half-launched session behind.
func (l *Launcher) Launch(ctx context.Context, plan Plan) (*Result, error) {
	tracer := l.tracers.NewTracer("session.launch")
	tracer.Start()
	tracer.WithAttributes(telemetry.Attributes{
		"session": plan.SessionName,
		"backend": string(plan.Backend),
		"workers": len(plan.Workers),
	})
	defer tracer.End()

	result, err := l.launch(ctx, plan, tracer)
	if err != nil {
		tracer.SetError(err)
	}
	return result, err
}

func (l *Launcher) launch(ctx context.Context, plan Plan, tracer telemetry.Tracer) (*Result, error) {
	if sessionExists(plan.Backend, plan.SessionName) {
		return nil, &apperr.SessionExists{Name: plan.SessionName}
	}

	if err := os.MkdirAll(plan.RunDir, 0o755); err != nil {
		return nil, &apperr.IoError{Path: plan.RunDir, Err: err}
	}

	script, err := Render(plan)
	if err != nil {
		return nil, err
	}

	scriptPath := filepath.Join(plan.RunDir, "launch.sh")
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		return nil, &apperr.IoError{Path: scriptPath, Err: err}
	}

	pidFiles := make([]string, len(plan.Workers))
	for i := range plan.Workers {
		pidFiles[i] = filepath.Join(plan.RunDir, fmt.Sprintf("worker_%d.pid", i))
	}

	waitCtx, cancel := context.WithTimeout(ctx, pidWait)
	defer cancel()

	seen := make(chan string, len(pidFiles)*2)
	notify := make(chan string, len(pidFiles)*2)
	wd := l.watchdogFactory.New(waitCtx, notify, func(path string) bool {
		return strings.HasSuffix(path, ".pid")
	})
	wd.AddDir(plan.RunDir)
	go func() {
		for p := range notify {
			seen <- p
		}
		close(seen)
	}()

	cmd := exec.CommandContext(ctx, "sh", scriptPath)
	if err := cmd.Start(); err != nil {
		return nil, &apperr.LaunchFailed{Worker: -1, Err: err}
	}
	go cmd.Wait() // the script only spawns the multiplexer session; it exits quickly on its own

	pending := make(map[string]bool, len(pidFiles))
	for _, p := range pidFiles {
		pending[p] = true
	}

waitLoop:
	for len(pending) > 0 {
		select {
		case p, ok := <-seen:
			if !ok {
				break waitLoop
			}
			delete(pending, p)
		case <-waitCtx.Done():
			break waitLoop
		}
	}

	if len(pending) > 0 {
		l.teardown(plan)
		missing := make([]string, 0, len(pending))
		for p := range pending {
			missing = append(missing, filepath.Base(p))
		}
		return nil, &apperr.LaunchFailed{
			Worker: len(plan.Workers) - len(pending),
			Err:    fmt.Errorf("pid files never appeared: %s", strings.Join(missing, ", ")),
		}
	}

	pids := make([]int, len(pidFiles))
	for i, p := range pidFiles {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &pids[i])
	}

	tracer.AddEvent("workers started", telemetry.Attributes{"pids": pids})

	return &Result{Script: script, PidFiles: pidFiles, PIDs: pids}, nil
}

func (l *Launcher) teardown(plan Plan) {
	var cmd *exec.Cmd
	switch plan.Backend {
	case types.BackendScreen:
		cmd = exec.Command("screen", "-S", plan.SessionName, "-X", "quit")
	default:
		cmd = exec.Command("tmux", "kill-session", "-t", plan.SessionName)
	}
	if err := cmd.Run(); err != nil {
		l.logger.Warn("teardown after failed launch did not find a session to kill",
			zap.String("session", plan.SessionName), zap.Error(err))
	}
}

// Kill terminates an existing session by name, used by the `kill` subcommand.
func Kill(backend types.Backend, name string) error {
	var cmd *exec.Cmd
	switch backend {
	case types.BackendScreen:
		cmd = exec.Command("screen", "-S", name, "-X", "quit")
	default:
		cmd = exec.Command("tmux", "kill-session", "-t", name)
	}
	if err := cmd.Run(); err != nil {
		return &apperr.LaunchFailed{Worker: -1, Err: fmt.Errorf("killing session %s: %w", name, err)}
	}
	return nil
}
