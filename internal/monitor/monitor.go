package monitor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aflr-dev/aflr/internal/types"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Monitor owns the poll goroutine and the drop-intermediate channel that
// feeds a tview dashboard (or, in headless mode, nothing at all until the
// final summary is written). Its OnStart/OnStop shape follows the teacher's
// Scheduler: a cancelable context, a background goroutine, and a done
// channel OnStop blocks on to guarantee a clean final poll before exit.
type Monitor struct {
	logger *zap.Logger

	sessionName string
	solutionDir string
	workerNames []string
	tick        time.Duration

	snapshots chan types.CampaignSnapshot
	done      chan struct{}

	poller  *poller
	latest  types.CampaignSnapshot
	started time.Time
}

type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Logger *zap.Logger
}

// New constructs a Monitor for one campaign's worker output directories.
// workerNames are the -M/-S names the Flag Assigner produced, in the same
// order, so output subdirectories can be located without re-reading any
// WorkerPlan.
func New(params Params, sessionName, solutionDir string, workerNames []string, tick time.Duration) *Monitor {
	started := time.Now()
	m := &Monitor{
		logger:      params.Logger,
		sessionName: sessionName,
		solutionDir: solutionDir,
		workerNames: workerNames,
		tick:        tick,
		snapshots:   make(chan types.CampaignSnapshot, 1),
		done:        make(chan struct{}),
		poller:      newPoller(solutionDir, workerNames, started, tick),
		started:     started,
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	params.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go m.run(pollCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			<-m.done
			return m.writeSummary()
		},
	})

	return m
}

// Snapshots exposes the drop-intermediate channel a UI goroutine reads from:
// if the UI is slower than the poller, older ticks are discarded rather than
// buffered, since only the freshest snapshot is ever worth displaying.
func (m *Monitor) Snapshots() <-chan types.CampaignSnapshot {
	return m.snapshots
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.latest = m.poller.poll(time.Now())
			m.publish(m.latest)
			return
		case now := <-ticker.C:
			m.latest = m.poller.poll(now)
			m.publish(m.latest)
		}
	}
}

func (m *Monitor) publish(snap types.CampaignSnapshot) {
	select {
	case m.snapshots <- snap:
	default:
		select {
		case <-m.snapshots:
		default:
		}
		select {
		case m.snapshots <- snap:
		default:
		}
	}
}

// summaryFileName and historyFileName are the solution directory's two
// persisted artifacts: the latest snapshot, and an append-only log of every
// campaign that has ever ended there.
const (
	summaryFileName = ".aflr-summary.json"
	historyFileName = ".aflr-history.jsonl"
)

func (m *Monitor) writeSummary() error {
	endedAt := time.Now()
	summary := m.poller.summary(m.sessionName, m.latest, endedAt)
	path := filepath.Join(m.solutionDir, summaryFileName)

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling campaign summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		m.logger.Error("failed to write campaign summary", zap.String("path", path), zap.Error(err))
		return err
	}
	m.logger.Info("wrote campaign summary", zap.String("path", path))

	if err := appendHistory(m.solutionDir, historyEntry(summary)); err != nil {
		m.logger.Error("failed to append run history", zap.Error(err))
		return err
	}
	return nil
}

func historyEntry(s types.CampaignSummary) types.RunHistoryEntry {
	return types.RunHistoryEntry{
		SessionName:   s.SessionName,
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
		Duration:      s.EndedAt.Sub(s.StartedAt),
		WorkerCount:   s.WorkerCount,
		TotalExecs:    s.TotalExecs,
		UniqueCrashes: s.UniqueCrashes,
		UniqueHangs:   s.UniqueHangs,
		FinalExecRate: s.FinalExecRate,
	}
}

// appendHistory writes one JSON-lines record to solutionDir's history file,
// creating it if absent. Each campaign's end appends exactly one line; the
// file is never rewritten or truncated, so concurrent readers (the history
// subcommand, via LoadHistory) never observe a half-written record.
func appendHistory(solutionDir string, entry types.RunHistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling history entry: %w", err)
	}
	path := filepath.Join(solutionDir, historyFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing history entry: %w", err)
	}
	return nil
}

// LoadHistory reads the last n entries (oldest first) from solutionDir's
// history file. A missing file is not an error: a campaign that has never
// completed there simply has no history yet.
func LoadHistory(solutionDir string, n int) ([]types.RunHistoryEntry, error) {
	path := filepath.Join(solutionDir, historyFileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	var all []types.RunHistoryEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var entry types.RunHistoryEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		all = append(all, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}
