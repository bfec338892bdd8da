package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"self-evolving-ai/domain"
)

type fakeBackupStore struct {
	latest       string
	hasLatest    bool
	restoreCalls []string
}

func (b *fakeBackupStore) LatestBackup(targetFile string) (string, bool, error) {
	return b.latest, b.hasLatest, nil
}

func (b *fakeBackupStore) Restore(targetFile, backupPath string) error {
	b.restoreCalls = append(b.restoreCalls, backupPath)
	return nil
}

type fakeAttemptLog struct {
	counters   domain.AttemptCounters
	last       *domain.EvolutionAttempt
	referenced map[string]bool
}

func (l *fakeAttemptLog) Counters() (domain.AttemptCounters, error) { return l.counters, nil }
func (l *fakeAttemptLog) Last() (*domain.EvolutionAttempt, error)   { return l.last, nil }
func (l *fakeAttemptLog) ReferencesBackup(path string) (bool, error) {
	return l.referenced[path], nil
}

func newTestService(t *testing.T, backups *fakeBackupStore, log *fakeAttemptLog, memory domain.VectorMemory) *EvolutionService {
	t.Helper()
	evolver := domain.NewEvolver(nil, nil, nil, nil, nil, nil, domain.EvolverConfig{}, nil)
	svc, err := NewEvolutionService(evolver, backups, log, memory, "target.go", nil)
	require.NoError(t, err)
	return svc
}

func TestRecoverRestoresUnreferencedBackup(t *testing.T) {
	backups := &fakeBackupStore{latest: "bak-orphan", hasLatest: true}
	log := &fakeAttemptLog{referenced: map[string]bool{}}

	svc := newTestService(t, backups, log, nil)

	recovered, err := svc.RecoverIfUnclean()
	require.NoError(t, err)
	assert.True(t, recovered)
	assert.Equal(t, []string{"bak-orphan"}, backups.restoreCalls)
}

func TestRecoverSkipsFinalizedBackup(t *testing.T) {
	backups := &fakeBackupStore{latest: "bak-1", hasLatest: true}
	log := &fakeAttemptLog{referenced: map[string]bool{"bak-1": true}}

	svc := newTestService(t, backups, log, nil)

	recovered, err := svc.RecoverIfUnclean()
	require.NoError(t, err)
	assert.False(t, recovered)
	assert.Empty(t, backups.restoreCalls)
}

func TestRecoverWithNoBackups(t *testing.T) {
	svc := newTestService(t, &fakeBackupStore{}, &fakeAttemptLog{}, nil)

	recovered, err := svc.RecoverIfUnclean()
	require.NoError(t, err)
	assert.False(t, recovered)
}

func TestCurrentStatus(t *testing.T) {
	last := &domain.EvolutionAttempt{ID: "a", Outcome: domain.OutcomeKept}
	log := &fakeAttemptLog{
		counters: domain.AttemptCounters{Attempts: 4, Kept: 1, RolledBack: 2, Abandoned: 1},
		last:     last,
	}
	memory := &memoryStub{items: []domain.KnowledgeItem{{}, {}, {}}}

	svc := newTestService(t, &fakeBackupStore{}, log, memory)

	status, err := svc.CurrentStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), status.MemoryItems)
	assert.Equal(t, 4, status.Counters.Attempts)
	assert.Equal(t, last, status.LastAttempt)
}

func TestCurrentStatusWithoutMemory(t *testing.T) {
	svc := newTestService(t, &fakeBackupStore{}, &fakeAttemptLog{}, nil)

	status, err := svc.CurrentStatus(context.Background())
	require.NoError(t, err)
	assert.Zero(t, status.MemoryItems)
}
