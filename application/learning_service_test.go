package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"self-evolving-ai/domain"
)

type fakePool struct {
	reply    string
	provider string
	err      error
	prompts  []string
}

func (p *fakePool) AskAny(ctx context.Context, prompt string, params domain.GenerationParams) (string, string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.err != nil {
		return "", "", p.err
	}
	return p.reply, p.provider, nil
}

type memoryStub struct {
	items  []domain.KnowledgeItem
	addErr error
}

func (m *memoryStub) Add(ctx context.Context, item domain.KnowledgeItem) (string, error) {
	if m.addErr != nil {
		return "", m.addErr
	}
	item.ID = fmt.Sprintf("item-%d", len(m.items))
	m.items = append(m.items, item)
	return item.ID, nil
}

func (m *memoryStub) Search(ctx context.Context, query string, k int) ([]domain.KnowledgeItem, error) {
	if k > len(m.items) {
		k = len(m.items)
	}
	return m.items[:k], nil
}

func (m *memoryStub) Count(ctx context.Context) (uint64, error) {
	return uint64(len(m.items)), nil
}

func TestGenerateQuestions(t *testing.T) {
	svc, err := NewLearningService(&fakePool{}, &memoryStub{}, domain.GenerationParams{}, nil)
	require.NoError(t, err)

	questions := svc.GenerateQuestions(5)
	require.Len(t, questions, 5)
	for _, q := range questions {
		assert.NotEmpty(t, q)
		assert.NotContains(t, q, "%s")
	}
}

func TestLearnQuestionStoresAnswer(t *testing.T) {
	pool := &fakePool{reply: "The derivative measures rate of change.", provider: "groq"}
	memory := &memoryStub{}

	svc, err := NewLearningService(pool, memory, domain.GenerationParams{}, nil)
	require.NoError(t, err)

	item, err := svc.LearnQuestion(context.Background(), "What is a derivative?")
	require.NoError(t, err)
	assert.Equal(t, "item-0", item.ID)
	assert.Equal(t, "groq", item.Source)
	assert.False(t, item.Timestamp.IsZero())

	require.Len(t, memory.items, 1)
	assert.Equal(t, "What is a derivative?", memory.items[0].Question)
}

func TestRunCycleStoresAllAnswers(t *testing.T) {
	pool := &fakePool{reply: "an answer", provider: "openai"}
	memory := &memoryStub{}

	svc, err := NewLearningService(pool, memory, domain.GenerationParams{}, nil)
	require.NoError(t, err)

	stored, err := svc.RunCycle(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, stored)
	assert.Len(t, memory.items, 3)
}

func TestRunCycleFailsWhenNothingStored(t *testing.T) {
	pool := &fakePool{err: errors.New("all providers down")}
	svc, err := NewLearningService(pool, &memoryStub{}, domain.GenerationParams{}, nil)
	require.NoError(t, err)

	stored, err := svc.RunCycle(context.Background(), 2)
	assert.Zero(t, stored)
	assert.Error(t, err)
}

func TestEvaluateKnowledgeUsesStoredContext(t *testing.T) {
	pool := &fakePool{reply: "56", provider: "groq"}
	memory := &memoryStub{items: []domain.KnowledgeItem{
		{Question: "What is 7 times 8?", Answer: "56"},
	}}

	svc, err := NewLearningService(pool, memory, domain.GenerationParams{}, nil)
	require.NoError(t, err)

	answer, retrieved, err := svc.EvaluateKnowledge(context.Background(), "seven times eight?")
	require.NoError(t, err)
	assert.Equal(t, "56", answer)
	assert.Equal(t, 1, retrieved)

	require.Len(t, pool.prompts, 1)
	assert.True(t, strings.Contains(pool.prompts[0], "Q: What is 7 times 8?"))
	assert.True(t, strings.Contains(pool.prompts[0], "Question: seven times eight?"))
}

func TestEvaluateKnowledgeWithEmptyMemory(t *testing.T) {
	pool := &fakePool{reply: "plain answer", provider: "groq"}
	svc, err := NewLearningService(pool, &memoryStub{}, domain.GenerationParams{}, nil)
	require.NoError(t, err)

	answer, retrieved, err := svc.EvaluateKnowledge(context.Background(), "anything?")
	require.NoError(t, err)
	assert.Equal(t, "plain answer", answer)
	assert.Zero(t, retrieved)
	assert.Equal(t, "anything?", pool.prompts[0])
}
