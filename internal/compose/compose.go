// Package compose implements the Command Composer: turning a WorkerPlan into
// the argv and environment afl-fuzz actually needs, and rendering that as a
// single shell-safe string the Session Launcher can hand to tmux/screen.
// Building args this way mirrors the teacher's aflpp.AFLInstance.buildArgs,
// generalized from a fixed master/slave shape to the full diversified flag
// set the Flag Assigner produces.
package compose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aflr-dev/aflr/internal/types"
)

// Command is the fully resolved invocation for one worker: an environment
// map and an argv slice, kept apart so a caller can either exec them
// directly (os/exec, no shell involved) or render them into a shell line for
// a multiplexer window.
type Command struct {
	Env  map[string]string
	Argv []string // engine binary first, target binary and its args last
}

// Build assembles the afl-fuzz invocation for plan: input/output dirs,
// the plan's flags (diversification flags followed by the campaign's extra
// flags), dictionary, then "--" followed by the target binary and its args.
// types.Placeholder tokens in
// TargetArgs pass through untouched; afl-fuzz itself rewrites them at each
// execution.
func Build(spec types.CampaignSpec, plan types.WorkerPlan) Command {
	argv := []string{spec.EngineBinary, "-i", spec.SeedDir, "-o", spec.SolutionDir}
	argv = append(argv, plan.Flags...)

	if spec.DictPath != "" {
		argv = append(argv, "-x", spec.DictPath)
	}

	argv = append(argv, "--", plan.TargetBinary)
	argv = append(argv, plan.TargetArgs...)

	env := make(map[string]string, len(plan.Env))
	for k, v := range plan.Env {
		env[k] = v
	}

	return Command{Env: env, Argv: argv}
}

// Render produces a single shell command line equivalent to Command: each
// env assignment first (sorted for deterministic output), then the argv with
// every element shell-quoted. The result is safe to hand to `sh -c` or to a
// tmux send-keys call, and is a total function — every Command, including
// one whose args contain spaces, quotes, or the placeholder token, renders
// to something a POSIX shell parses back into the same argv.
func Render(cmd Command) string {
	var b strings.Builder

	keys := make([]string, 0, len(cmd.Env))
	for k := range cmd.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(quote(cmd.Env[k]))
		b.WriteByte(' ')
	}

	for i, a := range cmd.Argv {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(quote(a))
	}

	return b.String()
}

// quote renders s as a single POSIX shell word. Values that contain no shell
// metacharacters are left bare for readability, matching how a human would
// type the same command; anything else is single-quoted, with embedded
// single quotes escaped via the standard '"'"' idiom.
func quote(s string) string {
	if s == "" {
		return "''"
	}
	if !needsQuoting(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func needsQuoting(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			continue
		case strings.ContainsRune("_./-@%+=:,", r):
			continue
		default:
			return true
		}
	}
	return false
}

// Summary renders a one-line human-readable label for plan, used by gen and
// dry-run output.
func Summary(plan types.WorkerPlan) string {
	return fmt.Sprintf("%s (%s)", plan.Name, plan.Role)
}
