package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const (
	DefaultModel = "gpt-3.5-turbo"

	// DefaultSystemPrompt introduces the BitHabit persona and keeps replies short.
	DefaultSystemPrompt = "Kirjoita maksimissaan 3 viestiä kun vastaat. Olen BitHabit, virtuaalinen assistentti, jonka WellPro on luonut auttamaan sinua kehittämään ja ylläpitämään terveellisiä tapoja. Olen täällä tarjoamassa ohjausta liikuntaan, ravitsemukseen ja yleiseen hyvinvointiin."

	completionTimeout = 30 * time.Second
)

var ErrEmptyCompletion = errors.New("llm: completion returned no content")

// Service relays a single user message to a chat completion model.
type Service struct {
	llm          llms.Model
	systemPrompt string
	logger       *zap.Logger
}

func New(baseURL, token, model, systemPrompt string, logger *zap.Logger) (*Service, error) {
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewWithModel(llm, systemPrompt, logger), nil
}

func NewWithModel(model llms.Model, systemPrompt string, logger *zap.Logger) *Service {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{llm: model, systemPrompt: systemPrompt, logger: logger}
}

// Reply sends the system prompt and message and returns the trimmed answer.
func (s *Service) Reply(ctx context.Context, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	resp, err := s.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, s.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, message),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	reply := strings.TrimSpace(resp.Choices[0].Content)
	if reply == "" {
		return "", ErrEmptyCompletion
	}
	s.logger.Debug("AI response", zap.String("reply", reply))
	return reply, nil
}
