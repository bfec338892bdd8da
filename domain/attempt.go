package domain

import (
	"context"
	"time"
)

// AttemptOutcome is the terminal state of a single evolution attempt.
type AttemptOutcome string

const (
	OutcomeKept       AttemptOutcome = "kept"
	OutcomeRolledBack AttemptOutcome = "rolled_back"
	// OutcomeAbandoned covers attempts that never mutated the target:
	// parser rejections and apply failures.
	OutcomeAbandoned AttemptOutcome = "abandoned"
)

// EvolutionAttempt is one full generate→parse→apply→benchmark→decide
// cycle. A record is created when the attempt starts, finalized at the
// keep/rollback decision, and appended to the evolution log. It is
// never mutated afterward.
type EvolutionAttempt struct {
	ID          string             `json:"id"`
	Candidate   *MutationCandidate `json:"candidate,omitempty"`
	TargetFile  string             `json:"target_file"`
	ScoreBefore float64            `json:"score_before"`
	ScoreAfter  float64            `json:"score_after"`
	Kept        bool               `json:"kept"`
	Outcome     AttemptOutcome     `json:"outcome"`
	// FailureReason names the parser/apply error category for abandoned
	// attempts, empty otherwise.
	FailureReason string    `json:"failure_reason,omitempty"`
	BackupPath    string    `json:"backup_path,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// MutationGenerator produces raw mutation text for a target file,
// usually by asking a hosted model how it would improve the code.
type MutationGenerator interface {
	Generate(ctx context.Context, targetFile string) (string, error)
}

// CodeApplicator mutates a target file with a validated candidate.
//
// Apply must create a verified backup before touching the file and must
// leave the file unmodified when it returns an error. Restore overwrites
// the target with the backup's bytes.
type CodeApplicator interface {
	Apply(ctx context.Context, candidate *MutationCandidate) (backupPath string, err error)
	Restore(targetFile, backupPath string) error
}

// AttemptRecorder persists finalized attempts, append-only.
type AttemptRecorder interface {
	Append(attempt EvolutionAttempt) error
}

// AttemptCounters is the running attempts/kept/rolled-back tally
// reported to the user, derived from the evolution log.
type AttemptCounters struct {
	Attempts   int `json:"attempts"`
	Kept       int `json:"kept"`
	RolledBack int `json:"rolled_back"`
	Abandoned  int `json:"abandoned"`
}
