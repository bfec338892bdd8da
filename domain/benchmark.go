package domain

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// BenchmarkQuestion is one fixed question with its accepted answers.
// An answer is correct when it matches any accepted string by
// case-insensitive substring containment in either direction.
type BenchmarkQuestion struct {
	Prompt   string
	Accepted []string
	Category string
}

// BenchmarkResult is the outcome of one benchmark pass.
type BenchmarkResult struct {
	// Score is CorrectCount / Total, in [0,1].
	Score float64 `json:"score"`
	// Correct records the per-question verdict in question order.
	Correct []bool `json:"correct"`

	CorrectCount int `json:"correct_count"`
	Total        int `json:"total"`

	// CategoryScores breaks correct/total down per question category.
	CategoryScores map[string]CategoryScore `json:"category_scores"`
}

// CategoryScore is the correct/total tally for a single category.
type CategoryScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Answerer maps a question to a model's answer. The underlying call is
// usually a non-deterministic hosted model, so repeated runs of the same
// benchmark may disagree.
type Answerer func(ctx context.Context, question string) (string, error)

// Benchmark scores an Answerer against a fixed ordered question set.
//
// Because the answerer is noisy, the benchmark can run each question
// several times and take a per-question majority vote. With runs=1 the
// single sample decides.
type Benchmark struct {
	questions []BenchmarkQuestion
	runs      int
	logger    *zap.Logger
}

// NewBenchmark creates a benchmark over the given questions. Empty
// questions selects the built-in set; runs below 1 is treated as 1 and
// even values are rounded up so the vote cannot tie.
func NewBenchmark(questions []BenchmarkQuestion, runs int, logger *zap.Logger) *Benchmark {
	if len(questions) == 0 {
		questions = BenchmarkQuestions()
	}
	if runs < 1 {
		runs = 1
	}
	if runs%2 == 0 {
		runs++
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Benchmark{questions: questions, runs: runs, logger: logger}
}

// Questions returns the benchmark's question set in order.
func (b *Benchmark) Questions() []BenchmarkQuestion {
	return b.questions
}

// Run scores the answerer over the full question set.
func (b *Benchmark) Run(ctx context.Context, answer Answerer) (*BenchmarkResult, error) {
	return b.run(ctx, answer, b.questions)
}

// QuickRun scores the answerer over the first n questions only. It
// trades accuracy for speed between evolution attempts.
func (b *Benchmark) QuickRun(ctx context.Context, answer Answerer, n int) (*BenchmarkResult, error) {
	if n <= 0 || n > len(b.questions) {
		n = len(b.questions)
	}
	return b.run(ctx, answer, b.questions[:n])
}

func (b *Benchmark) run(ctx context.Context, answer Answerer, questions []BenchmarkQuestion) (*BenchmarkResult, error) {
	result := &BenchmarkResult{
		Correct:        make([]bool, len(questions)),
		Total:          len(questions),
		CategoryScores: make(map[string]CategoryScore),
	}

	failedCalls := 0
	totalCalls := 0
	for i, q := range questions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		votes := 0
		for run := 0; run < b.runs; run++ {
			totalCalls++
			got, err := answer(ctx, fmt.Sprintf("Answer briefly and correctly: %s", q.Prompt))
			if err != nil {
				failedCalls++
				b.logger.Warn("benchmark answer failed",
					zap.String("question", q.Prompt),
					zap.Error(err))
				continue
			}
			if matchAnswer(got, q.Accepted) {
				votes++
			}
		}

		correct := votes > b.runs/2
		result.Correct[i] = correct

		cs := result.CategoryScores[q.Category]
		cs.Total++
		if correct {
			cs.Correct++
			result.CorrectCount++
		}
		result.CategoryScores[q.Category] = cs
	}

	if totalCalls > 0 && failedCalls == totalCalls {
		return nil, fmt.Errorf("benchmark: every answer call failed: %w", ErrProviderUnavailable)
	}

	if result.Total > 0 {
		result.Score = float64(result.CorrectCount) / float64(result.Total)
	}
	return result, nil
}

// matchAnswer reports whether got matches any accepted answer. Matching
// is case-insensitive substring containment in either direction, with no
// partial credit.
func matchAnswer(got string, accepted []string) bool {
	answer := strings.ToLower(strings.TrimSpace(got))
	if answer == "" {
		return false
	}
	for _, want := range accepted {
		expected := strings.ToLower(strings.TrimSpace(want))
		if expected == "" {
			continue
		}
		if strings.Contains(answer, expected) || strings.Contains(expected, answer) {
			return true
		}
	}
	return false
}

// BenchmarkQuestions returns the fixed 40-question intelligence test:
// ten questions each of math, logic, general knowledge, and reasoning.
func BenchmarkQuestions() []BenchmarkQuestion {
	return []BenchmarkQuestion{
		// math
		{Prompt: "What is 15 + 27?", Accepted: []string{"42"}, Category: "math"},
		{Prompt: "What is 12 × 8?", Accepted: []string{"96"}, Category: "math"},
		{Prompt: "What is 144 ÷ 12?", Accepted: []string{"12"}, Category: "math"},
		{Prompt: "What is 25% of 80?", Accepted: []string{"20"}, Category: "math"},
		{Prompt: "If x + 7 = 15, what is x?", Accepted: []string{"8"}, Category: "math"},
		{Prompt: "What is 2³ (2 to the power of 3)?", Accepted: []string{"8"}, Category: "math"},
		{Prompt: "What is the square root of 64?", Accepted: []string{"8"}, Category: "math"},
		{Prompt: "What is 17 - 9?", Accepted: []string{"8"}, Category: "math"},
		{Prompt: "What is 5 × 5?", Accepted: []string{"25"}, Category: "math"},
		{Prompt: "What is 100 - 37?", Accepted: []string{"63"}, Category: "math"},

		// logic
		{Prompt: "If all A are B, and all B are C, are all A also C? Answer yes or no.", Accepted: []string{"yes"}, Category: "logic"},
		{Prompt: "If it's raining, the ground is wet. The ground is wet. Is it necessarily raining? Answer yes or no.", Accepted: []string{"no"}, Category: "logic"},
		{Prompt: "True or false: If A implies B, and B is false, then A must be false.", Accepted: []string{"true"}, Category: "logic"},
		{Prompt: "What comes next in the sequence: 2, 4, 8, 16, __?", Accepted: []string{"32"}, Category: "logic"},
		{Prompt: "If all dogs are mammals, and all mammals are animals, are all dogs animals? Yes or no.", Accepted: []string{"yes"}, Category: "logic"},
		{Prompt: "What is the next number: 1, 1, 2, 3, 5, 8, __?", Accepted: []string{"13"}, Category: "logic"},
		{Prompt: "True or false: A OR B is true if at least one of A or B is true.", Accepted: []string{"true"}, Category: "logic"},
		{Prompt: "If John is taller than Mary, and Mary is taller than Sue, who is the shortest?", Accepted: []string{"sue"}, Category: "logic"},
		{Prompt: "What comes next: A, C, E, G, __?", Accepted: []string{"i"}, Category: "logic"},
		{Prompt: "If NOT(A AND B) is true, what can we conclude? That at least one of A or B is false? Yes or no.", Accepted: []string{"yes"}, Category: "logic"},

		// knowledge
		{Prompt: "What is the capital of France?", Accepted: []string{"paris"}, Category: "knowledge"},
		{Prompt: "What is H2O commonly known as?", Accepted: []string{"water"}, Category: "knowledge"},
		{Prompt: "How many planets are in our solar system?", Accepted: []string{"8", "eight"}, Category: "knowledge"},
		{Prompt: "What is the speed of light in vacuum? (approximately, in km/s)", Accepted: []string{"300000", "300,000"}, Category: "knowledge"},
		{Prompt: "What is the chemical symbol for gold?", Accepted: []string{"au"}, Category: "knowledge"},
		{Prompt: "Who wrote 'Romeo and Juliet'?", Accepted: []string{"shakespeare"}, Category: "knowledge"},
		{Prompt: "What year did World War II end?", Accepted: []string{"1945"}, Category: "knowledge"},
		{Prompt: "What is the largest ocean on Earth?", Accepted: []string{"pacific"}, Category: "knowledge"},
		{Prompt: "How many continents are there?", Accepted: []string{"7", "seven"}, Category: "knowledge"},
		{Prompt: "What is the smallest prime number?", Accepted: []string{"2", "two"}, Category: "knowledge"},

		// reasoning
		{Prompt: "Explain in one sentence why the sky is blue.", Accepted: []string{"scattering"}, Category: "reasoning"},
		{Prompt: "What is the main difference between correlation and causation?", Accepted: []string{"correlation"}, Category: "reasoning"},
		{Prompt: "Why does ice float on water? One word answer.", Accepted: []string{"density"}, Category: "reasoning"},
		{Prompt: "What scientific method involves making observations and forming hypotheses?", Accepted: []string{"scientific"}, Category: "reasoning"},
		{Prompt: "If you heat water to 100°C at sea level, what happens?", Accepted: []string{"boils", "boiling"}, Category: "reasoning"},
		{Prompt: "What do we call the process of a solid turning directly into a gas?", Accepted: []string{"sublimation"}, Category: "reasoning"},
		{Prompt: "What force keeps planets in orbit around the sun?", Accepted: []string{"gravity"}, Category: "reasoning"},
		{Prompt: "What is the term for energy in motion?", Accepted: []string{"kinetic"}, Category: "reasoning"},
		{Prompt: "What do we call a testable prediction?", Accepted: []string{"hypothesis"}, Category: "reasoning"},
		{Prompt: "What is the opposite of matter?", Accepted: []string{"antimatter"}, Category: "reasoning"},
	}
}
