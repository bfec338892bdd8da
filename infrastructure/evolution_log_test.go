package infrastructure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"self-evolving-ai/domain"
)

func newTestLog(t *testing.T) *EvolutionLog {
	t.Helper()
	log, err := NewEvolutionLog(filepath.Join(t.TempDir(), "evolution_log.jsonl"), nil)
	require.NoError(t, err)
	return log
}

func attemptWithOutcome(id string, outcome domain.AttemptOutcome, backup string) domain.EvolutionAttempt {
	return domain.EvolutionAttempt{
		ID:         id,
		TargetFile: "target.go",
		Outcome:    outcome,
		BackupPath: backup,
		Timestamp:  time.Now().UTC(),
	}
}

func TestEvolutionLogEmpty(t *testing.T) {
	log := newTestLog(t)

	last, err := log.Last()
	require.NoError(t, err)
	assert.Nil(t, last)

	counters, err := log.Counters()
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptCounters{}, counters)
}

func TestEvolutionLogAppendAndRead(t *testing.T) {
	log := newTestLog(t)

	require.NoError(t, log.Append(attemptWithOutcome("a", domain.OutcomeKept, "bak-1")))
	require.NoError(t, log.Append(attemptWithOutcome("b", domain.OutcomeRolledBack, "bak-2")))
	require.NoError(t, log.Append(attemptWithOutcome("c", domain.OutcomeAbandoned, "")))

	last, err := log.Last()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "c", last.ID)

	counters, err := log.Counters()
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptCounters{
		Attempts:   3,
		Kept:       1,
		RolledBack: 1,
		Abandoned:  1,
	}, counters)
}

func TestEvolutionLogReferencesBackup(t *testing.T) {
	log := newTestLog(t)

	require.NoError(t, log.Append(attemptWithOutcome("a", domain.OutcomeRolledBack, "bak-1")))

	referenced, err := log.ReferencesBackup("bak-1")
	require.NoError(t, err)
	assert.True(t, referenced)

	referenced, err = log.ReferencesBackup("bak-never-recorded")
	require.NoError(t, err)
	assert.False(t, referenced)
}

func TestEvolutionLogSkipsTruncatedLine(t *testing.T) {
	log := newTestLog(t)

	require.NoError(t, log.Append(attemptWithOutcome("a", domain.OutcomeKept, "bak-1")))

	// Simulate a crash mid-write leaving a partial trailing line.
	f, err := os.OpenFile(log.path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":"trunc`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	last, err := log.Last()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "a", last.ID)

	counters, err := log.Counters()
	require.NoError(t, err)
	assert.Equal(t, 1, counters.Attempts)
}
