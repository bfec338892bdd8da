package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EvolverState is the loop's position in the attempt cycle.
type EvolverState string

const (
	StateIdle         EvolverState = "idle"
	StateGenerating   EvolverState = "generating"
	StateParsing      EvolverState = "parsing"
	StateApplying     EvolverState = "applying"
	StateBenchmarking EvolverState = "benchmarking"
	StateDeciding     EvolverState = "deciding"
	StateKept         EvolverState = "kept"
	StateRolledBack   EvolverState = "rolled_back"
)

// EvolverConfig tunes the tested-evolution loop.
type EvolverConfig struct {
	// QuickQuestions limits each benchmark pass to the first n questions.
	// Zero runs the full set.
	QuickQuestions int
	// AttemptDelay is the pause between attempts, mainly to respect
	// provider rate limits.
	AttemptDelay time.Duration
	// MaxProviderFailures aborts the run after this many consecutive
	// failed generation calls. Provider failures do not consume attempt
	// slots, so without a bound a dead provider would spin forever.
	MaxProviderFailures int
}

// EvolutionSummary aggregates one Run.
type EvolutionSummary struct {
	BaselineScore    float64 `json:"baseline_score"`
	FinalScore       float64 `json:"final_score"`
	Attempts         int     `json:"attempts"`
	Kept             int     `json:"kept"`
	RolledBack       int     `json:"rolled_back"`
	Abandoned        int     `json:"abandoned"`
	ProviderFailures int     `json:"provider_failures"`
}

// Evolver runs the tested-evolution loop: generate a mutation, parse
// it, apply it behind a verified backup, benchmark the result, and keep
// the change only on strict improvement.
//
// Execution is single-threaded and sequential. One attempt fully
// completes or rolls back before the next begins; concurrent attempts
// against the same target file would race on backup/restore and must be
// serialized by the caller.
type Evolver struct {
	generator  MutationGenerator
	parser     *MutationParser
	applicator CodeApplicator
	benchmark  *Benchmark
	answer     Answerer
	recorder   AttemptRecorder
	config     EvolverConfig
	logger     *zap.Logger

	state    EvolverState
	baseline *BenchmarkResult
}

// NewEvolver wires the loop's collaborators together.
func NewEvolver(
	generator MutationGenerator,
	parser *MutationParser,
	applicator CodeApplicator,
	benchmark *Benchmark,
	answer Answerer,
	recorder AttemptRecorder,
	config EvolverConfig,
	logger *zap.Logger,
) *Evolver {
	if config.MaxProviderFailures <= 0 {
		config.MaxProviderFailures = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evolver{
		generator:  generator,
		parser:     parser,
		applicator: applicator,
		benchmark:  benchmark,
		answer:     answer,
		recorder:   recorder,
		config:     config,
		logger:     logger,
		state:      StateIdle,
	}
}

// State returns the loop's current state.
func (e *Evolver) State() EvolverState {
	return e.state
}

// Baseline returns the session's cached baseline result, if measured.
func (e *Evolver) Baseline() *BenchmarkResult {
	return e.baseline
}

// Run executes up to budget attempts against targetFile and returns a
// summary. Per-attempt errors are caught at the attempt boundary and the
// loop continues; only resource exhaustion (a dead provider pool, an
// unwritable evolution log) or a failed restore aborts the run.
func (e *Evolver) Run(ctx context.Context, targetFile string, budget int) (*EvolutionSummary, error) {
	summary := &EvolutionSummary{}
	providerFailures := 0

	for attempts := 0; attempts < budget; {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		e.transition(StateGenerating)
		rawText, err := e.generator.Generate(ctx, targetFile)
		if err != nil {
			// Does not consume an attempt slot.
			providerFailures++
			summary.ProviderFailures++
			e.logger.Warn("mutation generation failed",
				zap.String("target", targetFile),
				zap.Int("consecutive_failures", providerFailures),
				zap.Error(err))
			if providerFailures >= e.config.MaxProviderFailures {
				e.transition(StateIdle)
				return summary, fmt.Errorf("%d consecutive generation failures: %w",
					providerFailures, ErrProviderUnavailable)
			}
			e.transition(StateIdle)
			e.pause(ctx)
			continue
		}
		providerFailures = 0
		attempts++
		summary.Attempts++

		record := EvolutionAttempt{
			ID:         uuid.New().String(),
			TargetFile: targetFile,
			Timestamp:  time.Now().UTC(),
		}

		e.transition(StateParsing)
		candidate, err := e.parser.Parse(rawText, targetFile)
		if err != nil {
			record.Outcome = OutcomeAbandoned
			record.FailureReason = failureCategory(err)
			summary.Abandoned++
			e.logger.Info("mutation rejected by parser",
				zap.String("reason", record.FailureReason),
				zap.Error(err))
			if err := e.finish(record); err != nil {
				return summary, err
			}
			e.pause(ctx)
			continue
		}
		record.Candidate = candidate
		e.logger.Info("mutation candidate parsed",
			zap.String("category", string(candidate.Category)),
			zap.String("symbol", candidate.Symbol),
			zap.String("modification", candidate.Modification))

		// The baseline is measured once per session and reused across
		// attempts; a kept mutation replaces it with the new score.
		if e.baseline == nil {
			e.transition(StateBenchmarking)
			baseline, err := e.runBenchmark(ctx)
			if err != nil {
				record.Outcome = OutcomeAbandoned
				record.FailureReason = "benchmark_failed"
				summary.Abandoned++
				e.logger.Warn("baseline benchmark failed", zap.Error(err))
				if err := e.finish(record); err != nil {
					return summary, err
				}
				e.pause(ctx)
				continue
			}
			e.baseline = baseline
			summary.BaselineScore = baseline.Score
			e.logger.Info("baseline measured", zap.Float64("score", baseline.Score))
		}
		record.ScoreBefore = e.baseline.Score

		e.transition(StateApplying)
		backupPath, err := e.applicator.Apply(ctx, candidate)
		if err != nil {
			record.Outcome = OutcomeAbandoned
			record.FailureReason = failureCategory(err)
			summary.Abandoned++
			e.logger.Warn("mutation apply failed",
				zap.String("target", targetFile),
				zap.Error(err))
			if err := e.finish(record); err != nil {
				return summary, err
			}
			e.pause(ctx)
			continue
		}
		record.BackupPath = backupPath

		e.transition(StateBenchmarking)
		after, err := e.runBenchmark(ctx)
		if err != nil {
			// The target file is mutated and untested; force a rollback.
			e.logger.Warn("post-apply benchmark failed, rolling back", zap.Error(err))
			if rerr := e.rollback(targetFile, backupPath); rerr != nil {
				return summary, rerr
			}
			record.Outcome = OutcomeRolledBack
			record.ScoreAfter = record.ScoreBefore
			summary.RolledBack++
			if err := e.finish(record); err != nil {
				return summary, err
			}
			e.pause(ctx)
			continue
		}
		record.ScoreAfter = after.Score

		e.transition(StateDeciding)
		if after.Score > record.ScoreBefore {
			record.Kept = true
			record.Outcome = OutcomeKept
			summary.Kept++
			e.baseline = after
			e.transition(StateKept)
			e.logger.Info("mutation kept",
				zap.Float64("score_before", record.ScoreBefore),
				zap.Float64("score_after", after.Score),
				zap.String("backup", backupPath))
		} else {
			if rerr := e.rollback(targetFile, backupPath); rerr != nil {
				return summary, rerr
			}
			record.Outcome = OutcomeRolledBack
			summary.RolledBack++
			e.transition(StateRolledBack)
			e.logger.Info("mutation rolled back",
				zap.Float64("score_before", record.ScoreBefore),
				zap.Float64("score_after", after.Score))
		}

		if err := e.finish(record); err != nil {
			return summary, err
		}
		e.pause(ctx)
	}

	if e.baseline != nil {
		summary.FinalScore = e.baseline.Score
	}
	return summary, nil
}

func (e *Evolver) runBenchmark(ctx context.Context) (*BenchmarkResult, error) {
	if e.config.QuickQuestions > 0 {
		return e.benchmark.QuickRun(ctx, e.answer, e.config.QuickQuestions)
	}
	return e.benchmark.Run(ctx, e.answer)
}

// rollback restores the target from its backup. A failed restore means
// the target may be corrupted, so it aborts the whole run.
func (e *Evolver) rollback(targetFile, backupPath string) error {
	if err := e.applicator.Restore(targetFile, backupPath); err != nil {
		e.logger.Error("RESTORE FAILED, target file may be corrupted",
			zap.String("target", targetFile),
			zap.String("backup", backupPath),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrRestoreFailed, err)
	}
	return nil
}

// finish appends the attempt record and returns to Idle. An append
// failure aborts the run: losing the audit trail counts as resource
// exhaustion, not a per-attempt error.
func (e *Evolver) finish(record EvolutionAttempt) error {
	e.transition(StateIdle)
	if e.recorder == nil {
		return nil
	}
	if err := e.recorder.Append(record); err != nil {
		return fmt.Errorf("append evolution log: %w", err)
	}
	return nil
}

func (e *Evolver) transition(next EvolverState) {
	e.logger.Debug("state transition",
		zap.String("from", string(e.state)),
		zap.String("to", string(next)))
	e.state = next
}

func (e *Evolver) pause(ctx context.Context) {
	if e.config.AttemptDelay <= 0 {
		return
	}
	select {
	case <-time.After(e.config.AttemptDelay):
	case <-ctx.Done():
	}
}

// failureCategory maps pipeline errors to the log's failure vocabulary.
func failureCategory(err error) string {
	switch {
	case errors.Is(err, ErrNoCodeFound):
		return "no_code_found"
	case errors.Is(err, ErrSyntaxInvalid):
		return "syntax_invalid"
	case errors.Is(err, ErrUnsafeOperation):
		return "unsafe_operation"
	case errors.Is(err, ErrBackupFailed):
		return "backup_failed"
	case errors.Is(err, ErrApplyFailed):
		return "apply_failed"
	case errors.Is(err, ErrRestoreFailed):
		return "restore_failed"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	default:
		return "unexpected"
	}
}
