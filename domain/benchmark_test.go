package domain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAnswerer answers correctly for prompts it has an entry for
// and with an unrelated string otherwise.
func scriptedAnswerer(known map[string]string) Answerer {
	return func(ctx context.Context, question string) (string, error) {
		for prompt, answer := range known {
			if strings.Contains(question, prompt) {
				return answer, nil
			}
		}
		return "no idea", nil
	}
}

func testQuestions() []BenchmarkQuestion {
	return []BenchmarkQuestion{
		{Prompt: "What is 7 times 8?", Accepted: []string{"56"}, Category: "math"},
		{Prompt: "What is 144 divided by 12?", Accepted: []string{"12", "twelve"}, Category: "math"},
		{Prompt: "What is the capital of France?", Accepted: []string{"Paris"}, Category: "knowledge"},
		{Prompt: "All cats are animals. Tom is a cat. Is Tom an animal?", Accepted: []string{"yes"}, Category: "logic"},
	}
}

func TestBenchmarkScoring(t *testing.T) {
	bench := NewBenchmark(testQuestions(), 1, nil)

	answer := scriptedAnswerer(map[string]string{
		"7 times 8":  "The answer is 56.",
		"144":        "twelve",
		"capital of": "Berlin",
	})

	result, err := bench.Run(context.Background(), answer)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.Score, 1e-9)
	assert.Equal(t, 2, result.CorrectCount)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, []bool{true, true, false, false}, result.Correct)
	assert.Equal(t, CategoryScore{Correct: 2, Total: 2}, result.CategoryScores["math"])
	assert.Equal(t, CategoryScore{Correct: 0, Total: 1}, result.CategoryScores["knowledge"])
}

func TestBenchmarkQuickRun(t *testing.T) {
	bench := NewBenchmark(testQuestions(), 1, nil)

	answer := scriptedAnswerer(map[string]string{
		"7 times 8": "56",
	})

	result, err := bench.QuickRun(context.Background(), answer, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.InDelta(t, 0.5, result.Score, 1e-9)
}

func TestBenchmarkMatchBothDirections(t *testing.T) {
	// Verbose answer contains the accepted string.
	assert.True(t, matchAnswer("I believe the answer is 56, give or take", []string{"56"}))
	// Terse answer is contained in the accepted string.
	assert.True(t, matchAnswer("pari", []string{"Paris"}))
	assert.True(t, matchAnswer("PARIS", []string{"paris"}))
	assert.False(t, matchAnswer("", []string{"56"}))
	assert.False(t, matchAnswer("57", []string{"56"}))
}

func TestBenchmarkMajorityVote(t *testing.T) {
	// Three runs per question; the answerer is wrong exactly once, so
	// the majority is still correct.
	calls := 0
	answer := func(ctx context.Context, question string) (string, error) {
		calls++
		if calls == 2 {
			return "wrong", nil
		}
		return "56", nil
	}

	bench := NewBenchmark([]BenchmarkQuestion{
		{Prompt: "What is 7 times 8?", Accepted: []string{"56"}, Category: "math"},
	}, 3, nil)

	result, err := bench.Run(context.Background(), answer)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, result.CorrectCount)
}

func TestBenchmarkEvenRunsRoundedUp(t *testing.T) {
	bench := NewBenchmark(testQuestions(), 2, nil)
	assert.Equal(t, 3, bench.runs)
}

func TestBenchmarkAllCallsFail(t *testing.T) {
	answer := func(ctx context.Context, question string) (string, error) {
		return "", errors.New("boom")
	}

	bench := NewBenchmark(testQuestions(), 1, nil)
	_, err := bench.Run(context.Background(), answer)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestBenchmarkBuiltinQuestionSet(t *testing.T) {
	questions := BenchmarkQuestions()
	require.Len(t, questions, 40)

	counts := map[string]int{}
	for _, q := range questions {
		counts[q.Category]++
		assert.NotEmpty(t, q.Prompt)
		assert.NotEmpty(t, q.Accepted)
	}
	assert.Equal(t, map[string]int{"math": 10, "logic": 10, "knowledge": 10, "reasoning": 10}, counts)
}
