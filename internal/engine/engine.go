package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bamsammich/migrate/internal/copier"
	"github.com/bamsammich/migrate/internal/event"
	"github.com/bamsammich/migrate/internal/stats"
)

// State is a phase of a migration run.
type State int

const (
	StateDiscovering State = iota + 1
	StateConfirming
	StateExecuting
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateDiscovering:
		return "discovering"
	case StateConfirming:
		return "confirming"
	case StateExecuting:
		return "executing"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Config describes a migration.
type Config struct {
	Copier  copier.Copier
	Confirm Confirmer
	Events  event.Sink
	Stats   *stats.Collector
	Src     string
	Dst     string
	Hash    HashAlgorithm
	Workers int
	Resume  bool // keep a checkpoint and skip work it records
}

// Totals are the migration-wide file and error counts.
type Totals struct {
	Files  int64
	Errors int64
}

// Result is the outcome of a migration.
type Result struct {
	Err    error // fatal error; nil when the run ended normally or was declined
	Plan   Plan
	Stats  stats.Snapshot
	Totals Totals
	State  State
}

// Run discovers the source tree, asks for confirmation twice, then copies
// every planned directory in order. It blocks until the run is done.
// Per-file and per-directory failures are counted, never returned.
func Run(ctx context.Context, cfg Config) Result {
	if cfg.Confirm == nil {
		return Result{State: StateAborted, Err: errors.New("engine: Config.Confirm is required")}
	}
	if cfg.Copier == nil {
		return Result{State: StateAborted, Err: errors.New("engine: Config.Copier is required")}
	}
	if cfg.Events == nil {
		cfg.Events = event.Discard
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}

	aborted := func(p Plan, err error) Result {
		return Result{State: StateAborted, Plan: p, Stats: cfg.Stats.Snapshot(), Err: err}
	}

	// Discovering.
	event.Emit(cfg.Events, event.Event{Type: event.DiscoveryStarted, Src: cfg.Src})
	disc, err := Discover(ctx, cfg.Src)
	if err != nil {
		return aborted(Plan{}, err)
	}
	for _, d := range disc.Dirs {
		event.Emit(cfg.Events, event.Event{
			Type:  event.DirDiscovered,
			Src:   d.Path,
			Files: int64(d.Files),
			Size:  d.Bytes,
		})
	}
	event.Emit(cfg.Events, event.Event{
		Type:  event.DiscoveryComplete,
		Src:   disc.Root,
		Dirs:  int64(len(disc.Dirs)),
		Files: int64(disc.TotalFiles),
		Size:  disc.TotalBytes,
	})

	// Confirming: gate 1, resolve targets, gate 2.
	if ok, err := cfg.Confirm.Confirm(ctx, GateDiscovery); err != nil || !ok {
		return aborted(Plan{}, confirmErr(GateDiscovery, err))
	}

	plan, err := disc.Resolve(cfg.Dst)
	if err != nil {
		return aborted(Plan{}, err)
	}
	for _, p := range plan.Pairs {
		event.Emit(cfg.Events, event.Event{Type: event.PairPlanned, Src: p.Src, Dst: p.Dst, Files: int64(p.Files)})
	}
	event.Emit(cfg.Events, event.Event{
		Type:      event.PlanComplete,
		Src:       plan.SrcRoot,
		Dst:       plan.DstRoot,
		Dirs:      int64(len(plan.Pairs)),
		Files:     int64(plan.TotalFiles),
		Size:      plan.TotalBytes,
		Digest:    plan.Fingerprint(),
		Algorithm: "xxhash64",
	})

	if ok, err := cfg.Confirm.Confirm(ctx, GatePlan); err != nil || !ok {
		return aborted(plan, confirmErr(GatePlan, err))
	}

	// Executing.
	var cp *CheckpointDB
	if cfg.Resume {
		cp, err = OpenCheckpoint(plan.SrcRoot, plan.DstRoot, plan.Fingerprint())
		if err != nil {
			return aborted(plan, fmt.Errorf("checkpoint: %w", err))
		}
		slog.Info("checkpoint opened", "path", cp.Path())
	}

	cfg.Stats.SetTotals(int64(plan.TotalFiles), plan.TotalBytes)
	t := NewTransferer(TransferConfig{
		Copier:     cfg.Copier,
		Events:     cfg.Events,
		Stats:      cfg.Stats,
		Checkpoint: cp,
		SrcRoot:    plan.SrcRoot,
		Hash:       cfg.Hash,
		Workers:    cfg.Workers,
	})

	var totals Totals
	for _, pair := range plan.Pairs {
		if ctx.Err() != nil {
			break
		}
		dr := t.TransferDirectory(ctx, pair.Src, pair.Dst)
		totals.Files += dr.Files
		totals.Errors += dr.Errors
	}

	snap := cfg.Stats.Snapshot()
	event.Emit(cfg.Events, event.Event{
		Type:   event.MigrationComplete,
		Src:    plan.SrcRoot,
		Dst:    plan.DstRoot,
		Files:  totals.Files,
		Errors: totals.Errors,
		Size:   snap.BytesCopied,
	})

	interrupted := ctx.Err()
	if cp != nil {
		closeCheckpoint(cp, totals.Errors == 0 && interrupted == nil)
	}

	if interrupted != nil {
		return Result{State: StateAborted, Plan: plan, Totals: totals, Stats: snap, Err: interrupted}
	}
	return Result{State: StateDone, Plan: plan, Totals: totals, Stats: snap}
}

// confirmErr is nil for a plain decline and wraps prompt failures.
func confirmErr(g Gate, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("confirm %s: %w", g, err)
}

// closeCheckpoint closes cp and deletes it after a clean, complete run.
func closeCheckpoint(cp *CheckpointDB, clean bool) {
	if err := cp.Close(); err != nil {
		slog.Warn("checkpoint close failed", "path", cp.Path(), "error", err)
		return
	}
	if !clean {
		slog.Info("checkpoint kept for resume", "path", cp.Path())
		return
	}
	if err := cp.Remove(); err != nil {
		slog.Warn("checkpoint remove failed", "path", cp.Path(), "error", err)
	}
}
