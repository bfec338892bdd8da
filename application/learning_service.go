package application

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"self-evolving-ai/domain"
)

// maxContextLength bounds how much retrieved knowledge is prepended to
// an evaluation prompt.
const maxContextLength = 2000

var learningTopics = []string{
	"mathematics",
	"physics",
	"computer science",
	"history",
	"geography",
	"biology",
	"logic and reasoning",
	"astronomy",
}

var questionTemplates = []string{
	"What is an important concept in %s and why does it matter?",
	"Explain a fundamental principle of %s in two sentences.",
	"What is a common misconception about %s?",
	"Give a concrete example that illustrates a key idea in %s.",
	"What problem in %s is considered solved, and how was it solved?",
}

// LearningService runs knowledge-acquisition cycles: it generates
// questions, asks the provider pool, and stores the answers in vector
// memory so later evaluations can retrieve them as context.
type LearningService struct {
	pool   domain.ProviderSelector
	memory domain.VectorMemory
	params domain.GenerationParams
	logger *zap.Logger
	rng    *rand.Rand
}

// NewLearningService creates a LearningService.
func NewLearningService(pool domain.ProviderSelector, memory domain.VectorMemory, params domain.GenerationParams, logger *zap.Logger) (*LearningService, error) {
	if pool == nil {
		return nil, fmt.Errorf("provider selector is required")
	}
	if memory == nil {
		return nil, fmt.Errorf("vector memory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LearningService{
		pool:   pool,
		memory: memory,
		params: params,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// GenerateQuestions produces n study questions from the topic and
// template pools.
func (s *LearningService) GenerateQuestions(n int) []string {
	if n < 1 {
		n = 1
	}
	questions := make([]string, 0, n)
	for i := 0; i < n; i++ {
		topic := learningTopics[s.rng.Intn(len(learningTopics))]
		template := questionTemplates[s.rng.Intn(len(questionTemplates))]
		questions = append(questions, fmt.Sprintf(template, topic))
	}
	return questions
}

// LearnQuestion asks the pool the question and stores the answer as a
// knowledge item. It returns the stored item.
func (s *LearningService) LearnQuestion(ctx context.Context, question string) (domain.KnowledgeItem, error) {
	answer, provider, err := s.pool.AskAny(ctx, question, s.params)
	if err != nil {
		return domain.KnowledgeItem{}, fmt.Errorf("ask providers: %w", err)
	}

	item := domain.KnowledgeItem{
		Question:  question,
		Answer:    answer,
		Source:    provider,
		Timestamp: time.Now().UTC(),
	}

	id, err := s.memory.Add(ctx, item)
	if err != nil {
		return domain.KnowledgeItem{}, fmt.Errorf("store knowledge: %w", err)
	}
	item.ID = id

	s.logger.Info("knowledge stored",
		zap.String("id", id),
		zap.String("source", provider),
		zap.String("question", question))
	return item, nil
}

// RunCycle generates n questions and learns each one. Individual
// failures are logged and skipped; the cycle fails only when every
// question fails.
func (s *LearningService) RunCycle(ctx context.Context, n int) (int, error) {
	questions := s.GenerateQuestions(n)

	stored := 0
	var lastErr error
	for _, question := range questions {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		if _, err := s.LearnQuestion(ctx, question); err != nil {
			s.logger.Warn("learning question failed",
				zap.String("question", question),
				zap.Error(err))
			lastErr = err
			continue
		}
		stored++
	}

	if stored == 0 && lastErr != nil {
		return 0, fmt.Errorf("learning cycle stored nothing: %w", lastErr)
	}
	return stored, nil
}

// EvaluateKnowledge answers a question using retrieved memory as
// context. It returns the answer and the number of items retrieved.
func (s *LearningService) EvaluateKnowledge(ctx context.Context, question string) (string, int, error) {
	items, err := s.memory.Search(ctx, question, 3)
	if err != nil {
		return "", 0, fmt.Errorf("search memory: %w", err)
	}

	prompt := question
	if len(items) > 0 {
		prompt = fmt.Sprintf("Use the following stored knowledge when it helps:\n\n%s\nQuestion: %s",
			domain.FormatContext(items, maxContextLength), question)
	}

	answer, provider, err := s.pool.AskAny(ctx, prompt, s.params)
	if err != nil {
		return "", len(items), fmt.Errorf("ask providers: %w", err)
	}

	s.logger.Debug("knowledge evaluated",
		zap.String("provider", provider),
		zap.Int("context_items", len(items)))
	return answer, len(items), nil
}
