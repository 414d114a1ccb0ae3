package assistant

import (
	"context"

	"github.com/RichardoC/bithabit/internal/tools"
	openai "github.com/sashabaranov/go-openai"
)

// Newest messages are enough to find the reply to the latest run.
const messagePageSize = 20

// OpenAIBackend talks to the OpenAI Assistants API.
type OpenAIBackend struct {
	client      *openai.Client
	assistantID string
}

var _ Backend = (*OpenAIBackend)(nil)

func NewOpenAIBackend(apiKey, baseURL, assistantID string) *OpenAIBackend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIBackend{
		client:      openai.NewClientWithConfig(cfg),
		assistantID: assistantID,
	}
}

func (b *OpenAIBackend) CreateThread(ctx context.Context) (string, error) {
	thread, err := b.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (b *OpenAIBackend) AddUserMessage(ctx context.Context, threadID, text string) error {
	_, err := b.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	return err
}

func (b *OpenAIBackend) CreateRun(ctx context.Context, threadID string) (Run, error) {
	run, err := b.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: b.assistantID,
	})
	if err != nil {
		return Run{}, err
	}
	return fromOpenAIRun(run), nil
}

func (b *OpenAIBackend) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := b.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, err
	}
	return fromOpenAIRun(run), nil
}

func (b *OpenAIBackend) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []tools.Output) (Run, error) {
	req := openai.SubmitToolOutputsRequest{
		ToolOutputs: make([]openai.ToolOutput, 0, len(outputs)),
	}
	for _, out := range outputs {
		req.ToolOutputs = append(req.ToolOutputs, openai.ToolOutput{
			ToolCallID: out.CallID,
			Output:     out.Output,
		})
	}

	run, err := b.client.SubmitToolOutputs(ctx, threadID, runID, req)
	if err != nil {
		return Run{}, err
	}
	return fromOpenAIRun(run), nil
}

func (b *OpenAIBackend) LatestAssistantText(ctx context.Context, threadID string) (string, bool, error) {
	limit := messagePageSize
	order := "desc"
	list, err := b.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", false, err
	}
	return latestAssistantText(list.Messages)
}

// latestAssistantText expects messages newest first.
func latestAssistantText(messages []openai.Message) (string, bool, error) {
	for _, msg := range messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, content := range msg.Content {
			if content.Type == "text" && content.Text != nil {
				return content.Text.Value, true, nil
			}
		}
		return "", false, nil
	}
	return "", false, nil
}

func fromOpenAIRun(run openai.Run) Run {
	out := Run{
		ID:       run.ID,
		ThreadID: run.ThreadID,
		Status:   string(run.Status),
	}
	if run.LastError != nil {
		out.LastError = run.LastError.Message
	}
	if run.RequiredAction != nil && run.RequiredAction.SubmitToolOutputs != nil {
		for _, call := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, tools.Call{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
		}
	}
	return out
}
