package assistant

import (
	"context"

	"github.com/RichardoC/bithabit/internal/tools"
)

// Run statuses reported by the assistant backend.
const (
	StatusQueued         = "queued"
	StatusInProgress     = "in_progress"
	StatusRequiresAction = "requires_action"
	StatusCancelling     = "cancelling"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
	StatusCancelled      = "cancelled"
	StatusExpired        = "expired"
	StatusIncomplete     = "incomplete"
)

// Run is the observed state of one assistant run.
type Run struct {
	ID        string
	ThreadID  string
	Status    string
	ToolCalls []tools.Call
	LastError string
}

// Backend is the assistant thread/run API.
type Backend interface {
	CreateThread(ctx context.Context) (string, error)
	AddUserMessage(ctx context.Context, threadID, text string) error
	CreateRun(ctx context.Context, threadID string) (Run, error)
	GetRun(ctx context.Context, threadID, runID string) (Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []tools.Output) (Run, error)
	// LatestAssistantText returns the first text block of the newest
	// assistant message, and false when the thread has none.
	LatestAssistantText(ctx context.Context, threadID string) (string, bool, error)
}

func isTerminalFailure(status string) bool {
	switch status {
	case StatusFailed, StatusCancelled, StatusExpired, StatusIncomplete:
		return true
	}
	return false
}
