package main

import (
	"fmt"

	"github.com/RichardoC/bithabit/internal/api"
	"github.com/RichardoC/bithabit/internal/assistant"
	"github.com/RichardoC/bithabit/internal/config"
	"github.com/RichardoC/bithabit/internal/db"
	"github.com/RichardoC/bithabit/internal/llm"
	"github.com/RichardoC/bithabit/internal/speech"
	"github.com/RichardoC/bithabit/internal/tools"
	"go.uber.org/zap"
)

// app holds the clients shared by the serve and ask commands. Exactly one of
// assistant and relay is set, depending on the configured mode.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     db.ThreadStore
	assistant *assistant.Orchestrator
	relay     *llm.Service
	speech    *speech.ElevenLabs
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := db.Open(cfg.ThreadStore, cfg.ThreadPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open thread store: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		speech: speech.NewElevenLabs(speech.Config{
			APIKey:  cfg.ElevenLabsAPIKey,
			BaseURL: cfg.ElevenLabsBaseURL,
			Profile: voiceProfile(cfg),
			Logger:  logger.Named("speech"),
		}),
	}

	switch cfg.Mode {
	case config.ModeChat:
		a.relay, err = llm.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.ChatModel, cfg.SystemPrompt, logger.Named("llm"))
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize chat model: %w", err)
		}
	default:
		registry, err := newRegistry(logger)
		if err != nil {
			store.Close()
			return nil, err
		}
		backend := assistant.NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.AssistantID)
		a.assistant = assistant.New(backend, registry, assistant.Options{
			PollInterval:    cfg.PollInterval,
			MaxPollAttempts: cfg.MaxPollAttempts,
			Logger:          logger.Named("assistant"),
		})
	}

	logger.Info("Initialized backends",
		zap.String("mode", cfg.Mode),
		zap.String("thread_store", cfg.ThreadStore),
		zap.String("thread_path", cfg.ThreadPath()))

	return a, nil
}

func newRegistry(logger *zap.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry(logger.Named("tools"))
	if err := tools.RegisterBuiltins(registry); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return registry, nil
}

func voiceProfile(cfg *config.Config) speech.Profile {
	return speech.Profile{
		VoiceID:         cfg.VoiceID,
		ModelID:         cfg.VoiceModel,
		OutputFormat:    cfg.OutputFormat,
		OptimizeLatency: cfg.OptimizeLatency,
		Settings: speech.VoiceSettings{
			Stability:       cfg.Stability,
			SimilarityBoost: cfg.SimilarityBoost,
			Style:           cfg.Style,
			UseSpeakerBoost: cfg.SpeakerBoost,
		},
	}
}

func (a *app) handlerOptions() api.Options {
	opts := api.Options{
		Synthesizer:      a.speech,
		Store:            a.store,
		Logger:           a.logger.Named("api"),
		RunTimeout:       a.cfg.RunTimeout,
		MaxMessageTokens: a.cfg.MaxMessageTokens,
		CountTokens: func(text string) int {
			return llm.CountTokens(a.cfg.ChatModel, text)
		},
	}
	// Assign only non-nil implementations so the interfaces stay nil otherwise.
	if a.assistant != nil {
		opts.Assistant = a.assistant
	} else {
		opts.Relay = a.relay
	}
	return opts
}

func (a *app) Close() error {
	return a.store.Close()
}
