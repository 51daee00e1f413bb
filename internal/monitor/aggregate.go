package monitor

import (
	"math"
	"path/filepath"
	"time"

	"github.com/aflr-dev/aflr/internal/types"
)

// historyCap bounds the sparkline ring buffer; the dashboard only ever
// shows the last few minutes at 1Hz.
const historyCap = 180

// poller owns the per-tick filesystem reads and the two hash caches; it is
// not safe for concurrent use, matching the single poll goroutine the
// Monitor's fx.Lifecycle hook starts.
type poller struct {
	solutionDir  string
	workerNames  []string
	startedAt    time.Time
	tickInterval time.Duration

	crashCache *hashCache
	hangCache  *hashCache

	history []float64
	tick    uint64
}

func newPoller(solutionDir string, workerNames []string, startedAt time.Time, tickInterval time.Duration) *poller {
	return &poller{
		solutionDir:  solutionDir,
		workerNames:  workerNames,
		startedAt:    startedAt,
		tickInterval: tickInterval,
		crashCache:   newHashCache(),
		hangCache:    newHashCache(),
	}
}

// poll builds one CampaignSnapshot, reading every worker's output directory
// at the instant now.
func (p *poller) poll(now time.Time) types.CampaignSnapshot {
	p.tick++

	snap := types.CampaignSnapshot{
		Tick:      p.tick,
		Timestamp: now,
		Elapsed:   now.Sub(p.startedAt),
	}

	rates := make([]float64, 0, len(p.workerNames))

	for _, name := range p.workerNames {
		outDir := filepath.Join(p.solutionDir, name)
		ws := readWorkerStatus(name, outDir, now, p.tickInterval)
		snap.Workers = append(snap.Workers, ws)

		snap.TotalExecs += ws.ExecsDone
		snap.ExecPerSecTotal += ws.ExecPerSecNow
		rates = append(rates, ws.ExecPerSecNow)

		p.crashCache.sync(filepath.Join(outDir, "crashes"))
		p.hangCache.sync(filepath.Join(outDir, "hangs"))
	}

	snap.UniqueCrashes = len(p.crashCache.hashes)
	snap.UniqueHangs = len(p.hangCache.hashes)

	snap.ExecPerSecMin, snap.ExecPerSecMax, snap.ExecPerSecMean = summarize(rates)

	p.history = append(p.history, snap.ExecPerSecTotal)
	if len(p.history) > historyCap {
		p.history = p.history[len(p.history)-historyCap:]
	}
	snap.ExecRateHistory = append([]float64(nil), p.history...)

	return snap
}

func summarize(vals []float64) (min, max, mean float64) {
	if len(vals) == 0 {
		return 0, 0, 0
	}
	min, max = vals[0], vals[0]
	var sum float64
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	mean = sum / float64(len(vals))
	return min, max, mean
}

// summary collapses the final tick into the persisted CampaignSummary.
func (p *poller) summary(sessionName string, snap types.CampaignSnapshot, endedAt time.Time) types.CampaignSummary {
	states := make(map[string]types.WorkerState, len(snap.Workers))
	for _, w := range snap.Workers {
		states[w.ID] = w.State
	}
	return types.CampaignSummary{
		SessionName:       sessionName,
		SolutionDir:       p.solutionDir,
		StartedAt:         p.startedAt,
		EndedAt:           endedAt,
		WorkerCount:       len(p.workerNames),
		TotalExecs:        snap.TotalExecs,
		UniqueCrashes:     snap.UniqueCrashes,
		UniqueHangs:       snap.UniqueHangs,
		FinalExecRate:     math.Round(snap.ExecPerSecTotal*100) / 100,
		WorkerFinalStates: states,
	}
}
