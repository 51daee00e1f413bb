package types

import "time"

// WorkerState is the monitor's per-worker lifecycle state machine.
// Transitions are monotonic except Stalled <-> Running, which is reversible.
type WorkerState string

const (
	StateUnknown  WorkerState = "unknown"
	StateStarting WorkerState = "starting"
	StateRunning  WorkerState = "running"
	StateStalled  WorkerState = "stalled"
	StateDead     WorkerState = "dead"
)

// WorkerStatusSnapshot is rebuilt from scratch on every monitor tick from one
// worker's fuzzer_stats file plus its queue/crashes/hangs directory counts.
type WorkerStatusSnapshot struct {
	ID string

	LastUpdate time.Time

	ExecPerSecNow   float64
	ExecPerSecTotal float64
	ExecsDone       uint64

	Favored int
	Found   int
	Imported int

	Stability float64 // percent
	Crashes   int
	Hangs     int

	MapDensity float64 // percent
	CyclesDone uint64

	LastFind  time.Time
	LastCrash time.Time

	Stage string

	PID   int
	Alive bool

	State WorkerState

	// Unparsed fields are recorded as unknown rather than zero; a false or
	// missing entry means "field present and parsed".
	Unknown map[string]bool
}

// CampaignSnapshot aggregates every WorkerStatusSnapshot collected in a
// single tick.
type CampaignSnapshot struct {
	Tick      uint64
	Timestamp time.Time
	Elapsed   time.Duration

	Workers []WorkerStatusSnapshot

	TotalExecs       uint64
	ExecPerSecTotal  float64
	ExecPerSecMin    float64
	ExecPerSecMax    float64
	ExecPerSecMean   float64

	UniqueCrashes int
	UniqueHangs   int

	// ExecRateHistory is a ring buffer of recent ExecPerSecTotal samples,
	// most-recent last, for sparkline rendering.
	ExecRateHistory []float64
}

// CampaignSummary is the final aggregate the monitor persists when the
// operator quits or the campaign otherwise ends; a trimmed RunHistoryEntry
// is appended alongside it.
type CampaignSummary struct {
	SessionName string    `json:"session_name"`
	SolutionDir string    `json:"solution_dir"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`

	WorkerCount   int `json:"worker_count"`
	TotalExecs    uint64  `json:"total_execs"`
	UniqueCrashes int     `json:"unique_crashes"`
	UniqueHangs   int     `json:"unique_hangs"`
	FinalExecRate float64 `json:"final_exec_rate"`

	WorkerFinalStates map[string]WorkerState `json:"worker_final_states"`
}

// RunHistoryEntry is one line of the solution directory's run history: the
// same aggregate facts as CampaignSummary, trimmed to what's worth scanning
// across many past campaigns (no per-worker breakdown). One entry is
// appended each time a monitor (under `run` or `tui`) stops and writes its
// summary, so the `history` subcommand can report recent campaigns without
// re-parsing every summary.
type RunHistoryEntry struct {
	SessionName string        `json:"session_name"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     time.Time     `json:"ended_at"`
	Duration    time.Duration `json:"duration"`

	WorkerCount   int     `json:"worker_count"`
	TotalExecs    uint64  `json:"total_execs"`
	UniqueCrashes int     `json:"unique_crashes"`
	UniqueHangs   int     `json:"unique_hangs"`
	FinalExecRate float64 `json:"final_exec_rate"`
}
