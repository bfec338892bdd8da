package infrastructure

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"self-evolving-ai/domain"
)

// EvolutionLog is an append-only JSON Lines record of evolution
// attempts. Each line is one finalized attempt; a truncated trailing
// line from an unclean shutdown is skipped on read.
type EvolutionLog struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewEvolutionLog creates the log at path, creating parent directories
// as needed.
func NewEvolutionLog(path string, logger *zap.Logger) (*EvolutionLog, error) {
	if path == "" {
		return nil, fmt.Errorf("evolution log path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	return &EvolutionLog{path: path, logger: logger}, nil
}

// Append writes the attempt as one JSON line.
func (l *EvolutionLog) Append(attempt domain.EvolutionAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open evolution log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write evolution log: %w", err)
	}
	return nil
}

// Last returns the most recent finalized attempt, or nil when the log
// is empty.
func (l *EvolutionLog) Last() (*domain.EvolutionAttempt, error) {
	var last *domain.EvolutionAttempt
	err := l.scan(func(attempt domain.EvolutionAttempt) {
		a := attempt
		last = &a
	})
	return last, err
}

// Counters tallies attempts by outcome over the whole log.
func (l *EvolutionLog) Counters() (domain.AttemptCounters, error) {
	var counters domain.AttemptCounters
	err := l.scan(func(attempt domain.EvolutionAttempt) {
		counters.Attempts++
		switch attempt.Outcome {
		case domain.OutcomeKept:
			counters.Kept++
		case domain.OutcomeRolledBack:
			counters.RolledBack++
		default:
			counters.Abandoned++
		}
	})
	return counters, err
}

// ReferencesBackup reports whether any finalized attempt recorded the
// given backup path. A backup on disk with no matching record means
// the attempt that created it never finished.
func (l *EvolutionLog) ReferencesBackup(backupPath string) (bool, error) {
	found := false
	err := l.scan(func(attempt domain.EvolutionAttempt) {
		if attempt.BackupPath == backupPath {
			found = true
		}
	})
	return found, err
}

func (l *EvolutionLog) scan(fn func(domain.EvolutionAttempt)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open evolution log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var attempt domain.EvolutionAttempt
		if err := json.Unmarshal(line, &attempt); err != nil {
			// Truncated or garbled line, likely from a crash mid-write.
			l.logger.Warn("skipping unreadable log line", zap.Error(err))
			continue
		}
		fn(attempt)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read evolution log: %w", err)
	}
	return nil
}
