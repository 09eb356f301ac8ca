// Package runner implements the Runner Loop (spec §4.H): the single
// top-level "run to completion or stop condition" operation that ties the
// task store, Subprocess Executor, Outcome Resolver, Checkpoint/Ledger
// Store, and Plan Projection together, mirroring the sequential
// get-next→dispatch→classify→persist shape of the teacher's
// internal/buildpool.Coordinator dispatch loop, narrowed from concurrent
// multi-worker dispatch to one task in flight at a time.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
	"github.com/hochfrequenz/taskmaster-longrun/internal/ledger"
	"github.com/hochfrequenz/taskmaster-longrun/internal/planview"
	"github.com/hochfrequenz/taskmaster-longrun/internal/rlog"
	"github.com/hochfrequenz/taskmaster-longrun/internal/runerr"
	"github.com/hochfrequenz/taskmaster-longrun/internal/runexec"
	"github.com/hochfrequenz/taskmaster-longrun/internal/taskstore"
)

// FinalStatus is the user-visible terminal classification of a run.
type FinalStatus string

const (
	StatusAllComplete FinalStatus = "all_complete"
	StatusPartial     FinalStatus = "partial"
	StatusError       FinalStatus = "error"
)

const defaultMaxRetries = 3

// ExecutorFunc is the Subprocess Executor seam — defaults to
// runexec.Execute, overridable in tests so the loop's retry/blocking/
// checkpoint logic can be exercised without spawning a real agent
// process.
type ExecutorFunc func(ctx context.Context, task *domain.Task, attempt int, paths domain.SessionPaths, opts runexec.Options, prompt string, onChunk runexec.ChunkFunc) (domain.ExecOutcome, error)

// Options configures a single Run invocation.
type Options struct {
	MaxTasks          int // 0 = unlimited
	MaxRetries        int // negative selects the default of 3; 0 is valid ("no retries")
	ContinueOnFailure bool
	Exec              runexec.Options
	Executor          ExecutorFunc     // defaults to runexec.Execute
	Clock             func() time.Time // defaults to time.Now; overridable for deterministic tests
}

func (o Options) executor() ExecutorFunc {
	if o.Executor != nil {
		return o.Executor
	}
	return runexec.Execute
}

func (o Options) maxRetries() int {
	if o.MaxRetries < 0 {
		return defaultMaxRetries
	}
	return o.MaxRetries
}

func (o Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// Observer receives callbacks from the loop. A nil Observer is replaced by
// NoopObserver, and a panic inside any callback is recovered so it cannot
// abort the loop — see spec §7 "Observer errors".
type Observer interface {
	OnTaskStart(task *domain.Task, attempt int)
	OnTaskEnd(entry domain.LedgerEntry, resolution runexec.Resolution)
	OnInfo(msg string)
	OnWarn(msg string)
	OnChunk(stream, line string)
}

// NoopObserver implements Observer with no-ops; embed it to implement only
// the callbacks a caller cares about.
type NoopObserver struct{}

func (NoopObserver) OnTaskStart(*domain.Task, int)                   {}
func (NoopObserver) OnTaskEnd(domain.LedgerEntry, runexec.Resolution) {}
func (NoopObserver) OnInfo(string)                                   {}
func (NoopObserver) OnWarn(string)                                   {}
func (NoopObserver) OnChunk(string, string)                          {}

// RunResult is the outcome of a full Run call, per spec §4.H's closing
// sentence.
type RunResult struct {
	CompletedTaskIDs []string
	BlockedTaskIDs   []string
	Attempts         map[string]int
	TotalRuns        int
	FinalStatus      FinalStatus
	ErrorMessage     string
}

// safeObserve recovers from a panicking observer so a flaky callback can
// never poison the loop (spec §7).
func safeObserve(log *rlog.Logger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("observer callback panicked: %v", r)
		}
	}()
	fn()
}

// Run drives store's task graph through the Subprocess Executor one task
// at a time until the store is exhausted, maxTasks is reached, or a fatal
// error forces early exit.
func Run(ctx context.Context, store taskstore.Store, paths domain.SessionPaths, opts Options, observer Observer) (RunResult, error) {
	if observer == nil {
		observer = NoopObserver{}
	}
	log := rlog.New("runner")

	checkpoint, err := ledger.ReadCheckpoint(paths.CheckpointFile)
	if err != nil {
		return RunResult{}, err
	}
	led, err := ledger.NewLedger(paths.LedgerFile)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{Attempts: checkpoint.Attempts}
	maxRetries := opts.maxRetries()

	persist := func() error {
		tasks, err := store.AllTasks()
		if err != nil {
			return fmt.Errorf("listing tasks for plan projection: %w", err)
		}
		if err := planview.SyncPlan(tasks, checkpoint, paths, opts.now()); err != nil {
			return fmt.Errorf("syncing plan: %w", err)
		}
		return ledger.WriteCheckpoint(paths.CheckpointFile, checkpoint)
	}

	for {
		task, err := store.NextTask()
		if err != nil {
			_ = persist()
			return result, &runerr.FatalRunError{Op: "NextTask", Err: err}
		}
		if task == nil {
			result.FinalStatus = finalStatusFor(checkpoint)
			break
		}
		if opts.MaxTasks > 0 && result.TotalRuns >= opts.MaxTasks {
			result.FinalStatus = finalStatusFor(checkpoint)
			break
		}

		attempt := checkpoint.MarkAttempt(task.ID)
		result.TotalRuns++
		if err := store.SetStatus(task.ID, domain.StatusInProgress); err != nil {
			_ = persist()
			return result, &runerr.FatalRunError{TaskID: task.ID, Op: "SetStatus(in-progress)", Err: err}
		}

		safeObserve(log, func() { observer.OnTaskStart(task, attempt) })
		log.Info("starting task %s attempt %d", task.ID, attempt)

		prompt := runexec.BuildPrompt(task, paths)
		start := opts.now()
		outcome, execErr := opts.executor()(ctx, task, attempt, paths, opts.Exec, prompt, func(stream, line string) {
			safeObserve(log, func() { observer.OnChunk(stream, line) })
		})
		if execErr != nil {
			_ = persist()
			return result, &runerr.FatalRunError{TaskID: task.ID, Op: "Execute", Err: execErr}
		}

		resolution := runexec.Resolve(outcome)
		entry := domain.LedgerEntry{
			Timestamp:  start.UTC(),
			TaskID:     task.ID,
			Title:      task.Title,
			Attempt:    attempt,
			ExitCode:   outcome.ExitCode,
			DurationMs: outcome.ElapsedMs,
			LogFile:    outcome.LogPath,
			Notes:      resolution.Note,
		}

		if resolution.Success {
			entry.Status = domain.LedgerDone
			if err := store.SetStatus(task.ID, domain.StatusDone); err != nil {
				_ = persist()
				return result, &runerr.FatalRunError{TaskID: task.ID, Op: "SetStatus(done)", Err: err}
			}
			checkpoint.MarkDone(task.ID)
			result.CompletedTaskIDs = append(result.CompletedTaskIDs, task.ID)
			safeObserve(log, func() { observer.OnTaskEnd(entry, resolution) })
			if err := led.Append(entry); err != nil {
				log.Warn("appending ledger entry for %s: %v", task.ID, err)
			}
			log.Info("task %s done: %s", task.ID, resolution.Note)
		} else {
			blocked := attempt > maxRetries
			if blocked {
				entry.Status = domain.LedgerBlocked
				if err := store.SetStatus(task.ID, domain.StatusBlocked); err != nil {
					_ = persist()
					return result, &runerr.FatalRunError{TaskID: task.ID, Op: "SetStatus(blocked)", Err: err}
				}
				checkpoint.MarkBlocked(task.ID)
				result.BlockedTaskIDs = append(result.BlockedTaskIDs, task.ID)
				log.Warn("task %s blocked after %d attempts: %s", task.ID, attempt, resolution.Note)
			} else {
				entry.Status = domain.LedgerFailed
				if err := store.SetStatus(task.ID, domain.StatusPending); err != nil {
					_ = persist()
					return result, &runerr.FatalRunError{TaskID: task.ID, Op: "SetStatus(pending)", Err: err}
				}
				log.Warn("task %s failed attempt %d, will retry: %s", task.ID, attempt, resolution.Note)
			}
			safeObserve(log, func() { observer.OnTaskEnd(entry, resolution) })
			if err := led.Append(entry); err != nil {
				log.Warn("appending ledger entry for %s: %v", task.ID, err)
			}

			if !opts.ContinueOnFailure {
				if err := persist(); err != nil {
					log.Warn("final persist after early exit failed: %v", err)
				}
				result.FinalStatus = StatusError
				result.ErrorMessage = fmt.Sprintf("task %s failed: %s", task.ID, resolution.Note)
				return result, nil
			}
		}

		if err := persist(); err != nil {
			return result, &runerr.FatalRunError{TaskID: task.ID, Op: "persist", Err: err}
		}
	}

	if err := persist(); err != nil {
		return result, &runerr.FatalRunError{Op: "final persist", Err: err}
	}
	return result, nil
}

// finalStatusFor classifies a completed loop (the store returned no
// further task, or maxTasks was reached) as all_complete iff nothing is
// blocked.
func finalStatusFor(checkpoint *domain.CheckpointState) FinalStatus {
	if len(checkpoint.BlockedTaskIDs) == 0 {
		return StatusAllComplete
	}
	return StatusPartial
}
