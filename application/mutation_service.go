package application

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"self-evolving-ai/domain"
)

// maxSourceExcerpt bounds how much of the target file is shown to the
// model, keeping prompts within small context windows.
const maxSourceExcerpt = 2000

const mutationPromptFormat = `You are improving a Go program. Here is an excerpt of %s:

%s

Propose ONE small, safe improvement to this file. It may add a helper
function, improve an existing function, add a type, or add an import.
Do not touch the filesystem, the network, or other processes.

Respond in exactly this format:
MODIFICATION: <one-line summary of the change>
REASON: <one-line justification>
CODE:
` + "```go" + `
<the complete new or replacement Go code>
` + "```" + `
`

// MutationService asks the provider pool for a candidate code change
// to the target file. It implements domain.MutationGenerator.
type MutationService struct {
	pool   domain.ProviderSelector
	params domain.GenerationParams
	logger *zap.Logger
}

// NewMutationService creates a MutationService.
func NewMutationService(pool domain.ProviderSelector, params domain.GenerationParams, logger *zap.Logger) (*MutationService, error) {
	if pool == nil {
		return nil, fmt.Errorf("provider selector is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MutationService{pool: pool, params: params, logger: logger}, nil
}

// Generate reads the target file and returns the raw model response
// proposing a mutation. Parsing and safety checks happen downstream.
func (s *MutationService) Generate(ctx context.Context, targetFile string) (string, error) {
	source, err := os.ReadFile(targetFile)
	if err != nil {
		return "", fmt.Errorf("read target file: %w", err)
	}

	excerpt := string(source)
	if len(excerpt) > maxSourceExcerpt {
		excerpt = excerpt[:maxSourceExcerpt]
	}

	prompt := fmt.Sprintf(mutationPromptFormat, targetFile, excerpt)

	text, provider, err := s.pool.AskAny(ctx, prompt, s.params)
	if err != nil {
		return "", err
	}

	s.logger.Debug("mutation proposed",
		zap.String("provider", provider),
		zap.Int("response_length", len(text)))
	return text, nil
}
