package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aflr-dev/aflr/internal/apperr"
	"github.com/aflr-dev/aflr/internal/assign"
	"github.com/aflr-dev/aflr/internal/compose"
	"github.com/aflr-dev/aflr/internal/config"
	"github.com/aflr-dev/aflr/internal/monitor"
	"github.com/aflr-dev/aflr/internal/probe"
	"github.com/aflr-dev/aflr/internal/session"
	"github.com/aflr-dev/aflr/pkg/logger"
	"github.com/aflr-dev/aflr/pkg/watchdog"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// runRun launches a full campaign: resolve + probe + assign + compose, start
// the tmux/screen session via the Launcher, then hand off to the Monitor and
// dashboard until the operator quits or a signal arrives. Ambient services
// (logger, watchdog factory) are wired through a short-lived fx.App that is
// populated up front and stopped when runRun returns — the same fx.Provide shape the
// teacher's cmd/b3fuzz/main.go uses for its long-running service, scoped
// here to just constructing this invocation's dependency graph.
func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cf := &campaignFlags{}
	registerCampaignFlags(fs, cf)
	headless := fs.Bool("headless", false, "skip the dashboard; just launch and write the final summary on exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	spec, appCfg, err := cf.resolve()
	if err != nil {
		return err
	}

	snap, err := probe.Probe(spec.EngineBinary)
	if err != nil {
		return err
	}
	if warning := capWorkersForSeeds(&spec); warning != "" {
		fmt.Println("warning:", warning)
	}

	plans, err := assign.Assign(spec, snap)
	if err != nil {
		return err
	}

	var logr *zap.Logger
	var wf *watchdog.WatchDogFactory
	buildApp := fx.New(
		fx.Provide(
			func() *config.AppConfig { return appCfg },
			logger.New,
			watchdog.NewWatchDogFactory,
		),
		fx.Populate(&logr, &wf),
		fx.NopLogger,
	)
	if err := buildApp.Start(ctx); err != nil {
		return &apperr.LaunchFailed{Worker: -1, Err: err}
	}
	defer buildApp.Stop(context.Background())

	if cf.dryRun {
		commands := make([]compose.Command, len(plans))
		for i, plan := range plans {
			commands[i] = compose.Build(spec, plan)
			fmt.Printf("# %s\n%s\n\n", compose.Summary(plan), compose.Render(commands[i]))
		}
		script, err := session.Render(session.Plan{
			SessionName: spec.SessionName,
			Backend:     spec.Backend,
			Workers:     commands,
			RunDir:      filepath.Join(os.TempDir(), "aflr-"+spec.SessionName),
		})
		if err != nil {
			return err
		}
		fmt.Print(script)
		return nil
	}

	commands := make([]compose.Command, len(plans))
	workerNames := make([]string, len(plans))
	for i, plan := range plans {
		commands[i] = compose.Build(spec, plan)
		workerNames[i] = plan.Name
	}

	runDir := filepath.Join(os.TempDir(), "aflr-"+spec.SessionName)
	launcher := session.New(logr, wf)
	launchResult, err := launcher.Launch(ctx, session.Plan{
		SessionName: spec.SessionName,
		Backend:     spec.Backend,
		Workers:     commands,
		RunDir:      runDir,
	})
	if err != nil {
		return err
	}
	logr.Info("launched campaign",
		zap.String("session", spec.SessionName),
		zap.Int("workers", len(plans)),
		zap.Ints("pids", launchResult.PIDs),
	)

	campaignLc := newLifecycle()
	mon := monitor.New(monitor.Params{Lc: campaignLc, Logger: logr}, spec.SessionName, spec.SolutionDir, workerNames, appCfg.TickInterval)
	campaignLc.start(ctx)
	defer campaignLc.stop(context.Background())

	if *headless {
		<-ctx.Done()
		return nil
	}

	return runDashboard(ctx, mon)
}

func runDashboard(ctx context.Context, mon *monitor.Monitor) error {
	dash := monitor.NewDashboard(func() {})

	go func() {
		for {
			select {
			case <-ctx.Done():
				dash.Stop()
				return
			case snap, ok := <-mon.Snapshots():
				if !ok {
					dash.Stop()
					return
				}
				dash.Update(snap)
			}
		}
	}()

	return dash.Run()
}

// lifecycle is a standalone implementation of the fx.Lifecycle interface
// (just Append(fx.Hook)), used to host the Monitor's start/stop hooks
// outside of any fx.App. Components that take an fx.Lifecycle are
// constructed this way whenever the caller needs the same OnStart/OnStop
// shape without running inside the ambient app's own graph.
type lifecycle struct {
	hooks []fx.Hook
}

func newLifecycle() *lifecycle {
	return &lifecycle{}
}

func (l *lifecycle) Append(hook fx.Hook) {
	l.hooks = append(l.hooks, hook)
}

func (l *lifecycle) start(ctx context.Context) {
	for _, h := range l.hooks {
		if h.OnStart != nil {
			h.OnStart(ctx)
		}
	}
}

func (l *lifecycle) stop(ctx context.Context) {
	for i := len(l.hooks) - 1; i >= 0; i-- {
		if l.hooks[i].OnStop != nil {
			l.hooks[i].OnStop(ctx)
		}
	}
}
