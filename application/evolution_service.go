package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"self-evolving-ai/domain"
)

// BackupStore is the slice of the code applicator the service needs
// for crash recovery.
type BackupStore interface {
	LatestBackup(targetFile string) (path string, ok bool, err error)
	Restore(targetFile, backupPath string) error
}

// AttemptLog is the attempt history the service reads for status and
// recovery decisions.
type AttemptLog interface {
	Counters() (domain.AttemptCounters, error)
	Last() (*domain.EvolutionAttempt, error)
	ReferencesBackup(backupPath string) (bool, error)
}

// Status summarizes the system for the status command.
type Status struct {
	MemoryItems uint64
	Counters    domain.AttemptCounters
	LastAttempt *domain.EvolutionAttempt
}

// EvolutionService drives the keep-or-rollback evolution loop and the
// startup recovery check around it.
type EvolutionService struct {
	evolver    *domain.Evolver
	backups    BackupStore
	log        AttemptLog
	memory     domain.VectorMemory
	targetFile string
	logger     *zap.Logger
}

// NewEvolutionService creates an EvolutionService. memory may be nil;
// Status then reports zero stored items.
func NewEvolutionService(
	evolver *domain.Evolver,
	backups BackupStore,
	log AttemptLog,
	memory domain.VectorMemory,
	targetFile string,
	logger *zap.Logger,
) (*EvolutionService, error) {
	if evolver == nil {
		return nil, fmt.Errorf("evolver is required")
	}
	if backups == nil {
		return nil, fmt.Errorf("backup store is required")
	}
	if log == nil {
		return nil, fmt.Errorf("attempt log is required")
	}
	if targetFile == "" {
		return nil, fmt.Errorf("target file is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvolutionService{
		evolver:    evolver,
		backups:    backups,
		log:        log,
		memory:     memory,
		targetFile: targetFile,
		logger:     logger,
	}, nil
}

// RecoverIfUnclean restores the target from the newest backup when
// that backup is not referenced by any finalized attempt. An
// unreferenced backup means a previous run crashed between applying a
// mutation and recording its outcome.
func (s *EvolutionService) RecoverIfUnclean() (bool, error) {
	backupPath, ok, err := s.backups.LatestBackup(s.targetFile)
	if err != nil {
		return false, fmt.Errorf("inspect backups: %w", err)
	}
	if !ok {
		return false, nil
	}

	referenced, err := s.log.ReferencesBackup(backupPath)
	if err != nil {
		return false, fmt.Errorf("check attempt log: %w", err)
	}
	if referenced {
		return false, nil
	}

	s.logger.Warn("unfinished attempt detected, restoring target",
		zap.String("target", s.targetFile),
		zap.String("backup", backupPath))

	if err := s.backups.Restore(s.targetFile, backupPath); err != nil {
		return false, fmt.Errorf("recover target: %w", err)
	}
	return true, nil
}

// Evolve runs the recovery check and then up to budget evolution
// attempts against the target file.
func (s *EvolutionService) Evolve(ctx context.Context, budget int) (*domain.EvolutionSummary, error) {
	recovered, err := s.RecoverIfUnclean()
	if err != nil {
		return nil, err
	}
	if recovered {
		s.logger.Info("target recovered before evolving", zap.String("target", s.targetFile))
	}

	return s.evolver.Run(ctx, s.targetFile, budget)
}

// CurrentStatus reports stored knowledge and attempt history.
func (s *EvolutionService) CurrentStatus(ctx context.Context) (Status, error) {
	counters, err := s.log.Counters()
	if err != nil {
		return Status{}, fmt.Errorf("read attempt counters: %w", err)
	}

	last, err := s.log.Last()
	if err != nil {
		return Status{}, fmt.Errorf("read last attempt: %w", err)
	}

	status := Status{Counters: counters, LastAttempt: last}
	if s.memory != nil {
		count, err := s.memory.Count(ctx)
		if err != nil {
			// Memory being down should not hide attempt history.
			s.logger.Warn("could not count stored knowledge", zap.Error(err))
		} else {
			status.MemoryItems = count
		}
	}
	return status, nil
}
