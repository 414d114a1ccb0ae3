// Package assistant drives assistant runs: it posts the user's message to a
// thread, starts a run and polls it until it completes, answering tool calls
// along the way.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RichardoC/bithabit/internal/tools"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval    = time.Second
	DefaultMaxPollAttempts = 120

	// FallbackReply is returned when a completed run left no assistant text.
	FallbackReply = "I'm sorry, I couldn't find a response."
)

var (
	ErrRunFailed  = errors.New("assistant: run did not complete")
	ErrRunTimeout = errors.New("assistant: run still pending after max poll attempts")
)

// ToolResolver answers the tool calls of a run.
type ToolResolver interface {
	Resolve(ctx context.Context, calls []tools.Call) []tools.Output
}

type Options struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	Logger          *zap.Logger
}

type Orchestrator struct {
	backend         Backend
	tools           ToolResolver
	pollInterval    time.Duration
	maxPollAttempts int
	logger          *zap.Logger
}

func New(backend Backend, resolver ToolResolver, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPollAttempts <= 0 {
		opts.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = tools.NewRegistry(opts.Logger)
	}
	return &Orchestrator{
		backend:         backend,
		tools:           resolver,
		pollInterval:    opts.PollInterval,
		maxPollAttempts: opts.MaxPollAttempts,
		logger:          opts.Logger,
	}
}

func (o *Orchestrator) StartThread(ctx context.Context) (string, error) {
	id, err := o.backend.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	o.logger.Info("created thread", zap.String("thread_id", id))
	return id, nil
}

// Reply posts message to the thread, runs the assistant and returns its answer.
func (o *Orchestrator) Reply(ctx context.Context, threadID, message string) (string, error) {
	if err := o.backend.AddUserMessage(ctx, threadID, message); err != nil {
		return "", fmt.Errorf("failed to add message: %w", err)
	}

	run, err := o.backend.CreateRun(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}

	run, err = o.waitForRun(ctx, threadID, run)
	if err != nil {
		return "", err
	}

	text, ok, err := o.backend.LatestAssistantText(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("failed to list messages: %w", err)
	}
	if !ok {
		o.logger.Warn("completed run has no assistant message",
			zap.String("thread_id", threadID), zap.String("run_id", run.ID))
		return FallbackReply, nil
	}
	return text, nil
}

// waitForRun polls until the run completes, submitting tool outputs whenever
// the run asks for them.
func (o *Orchestrator) waitForRun(ctx context.Context, threadID string, run Run) (Run, error) {
	logger := o.logger.With(zap.String("thread_id", threadID), zap.String("run_id", run.ID))

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		logger.Debug("run status", zap.String("status", run.Status), zap.Int("attempt", attempt))

		switch {
		case run.Status == StatusCompleted:
			return run, nil

		case isTerminalFailure(run.Status):
			if run.LastError != "" {
				return run, fmt.Errorf("%w: %s: %s", ErrRunFailed, run.Status, run.LastError)
			}
			return run, fmt.Errorf("%w: %s", ErrRunFailed, run.Status)

		case run.Status == StatusRequiresAction && len(run.ToolCalls) > 0:
			logger.Info("run requires action", zap.Int("tool_calls", len(run.ToolCalls)))
			outputs := o.tools.Resolve(ctx, run.ToolCalls)
			next, err := o.backend.SubmitToolOutputs(ctx, threadID, run.ID, outputs)
			if err != nil {
				return run, fmt.Errorf("failed to submit tool outputs: %w", err)
			}
			if next.ID == "" {
				next.ID = run.ID
			}
			run = next
		}

		if attempt >= o.maxPollAttempts {
			return run, fmt.Errorf("%w (%d attempts, last status %s)", ErrRunTimeout, attempt, run.Status)
		}

		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-ticker.C:
		}

		next, err := o.backend.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return run, fmt.Errorf("failed to retrieve run: %w", err)
		}
		run = next
	}
}
