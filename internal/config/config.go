// Package config holds the server settings. Values come from flags or the
// environment (an optional .env file is loaded first) and are validated
// before any client is constructed.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

const (
	ModeAssistant = "assistant"
	ModeChat      = "chat"

	appName = "bithabit"
)

type Config struct {
	Addr      string `help:"Listen address." default:":3000" env:"BITHABIT_ADDR" validate:"required"`
	Mode      string `help:"Reply backend: assistant threads or single chat completion." enum:"assistant,chat" default:"assistant" env:"BITHABIT_MODE" validate:"oneof=assistant chat"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info" env:"BITHABIT_LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `help:"Log encoding (json, console)." default:"json" env:"BITHABIT_LOG_FORMAT" validate:"oneof=json console"`

	OpenAIAPIKey  string `name:"openai-api-key" help:"OpenAI API key." env:"OPENAI_API_KEY" validate:"required"`
	OpenAIBaseURL string `name:"openai-base-url" help:"Override the OpenAI API base URL." env:"OPENAI_BASE_URL" validate:"omitempty,url"`
	AssistantID   string `help:"Assistant used for thread runs." env:"OPENAI_ASSISTANT_ID" validate:"required_if=Mode assistant"`
	ChatModel     string `help:"Chat completion model." default:"gpt-3.5-turbo" env:"BITHABIT_CHAT_MODEL" validate:"required"`
	SystemPrompt  string `help:"System prompt for chat completions (defaults to the BitHabit persona)." env:"BITHABIT_SYSTEM_PROMPT"`

	PollInterval    time.Duration `help:"Delay between run status polls." default:"1s" env:"BITHABIT_POLL_INTERVAL" validate:"gt=0"`
	MaxPollAttempts int           `help:"Give up on a run after this many polls." default:"120" env:"BITHABIT_MAX_POLL_ATTEMPTS" validate:"gt=0"`
	RunTimeout      time.Duration `help:"Upper bound for one assistant reply." default:"2m" env:"BITHABIT_RUN_TIMEOUT" validate:"gt=0"`

	ElevenLabsAPIKey  string  `name:"elevenlabs-api-key" help:"ElevenLabs API key." env:"ELEVENLABS_API_KEY" validate:"required"`
	ElevenLabsBaseURL string  `name:"elevenlabs-base-url" help:"Override the ElevenLabs API base URL." default:"https://api.elevenlabs.io" env:"ELEVENLABS_BASE_URL" validate:"url"`
	VoiceID           string  `help:"ElevenLabs voice." default:"jsCqWAovK2LkecY7zXl4" env:"BITHABIT_VOICE_ID" validate:"required"`
	VoiceModel        string  `help:"ElevenLabs synthesis model." default:"eleven_multilingual_v2" env:"BITHABIT_VOICE_MODEL" validate:"required"`
	OutputFormat      string  `help:"ElevenLabs output format." default:"mp3_22050_32" env:"BITHABIT_OUTPUT_FORMAT" validate:"required"`
	OptimizeLatency   int     `help:"ElevenLabs streaming latency optimisation level (0-4)." default:"0" env:"BITHABIT_OPTIMIZE_LATENCY" validate:"min=0,max=4"`
	Stability         float64 `help:"Voice stability." default:"0.0" env:"BITHABIT_VOICE_STABILITY" validate:"min=0,max=1"`
	SimilarityBoost   float64 `help:"Voice similarity boost." default:"1.0" env:"BITHABIT_VOICE_SIMILARITY" validate:"min=0,max=1"`
	Style             float64 `help:"Voice style exaggeration." default:"0.0" env:"BITHABIT_VOICE_STYLE" validate:"min=0,max=1"`
	SpeakerBoost      bool    `help:"Enable speaker boost." default:"true" negatable:"" env:"BITHABIT_SPEAKER_BOOST"`

	ThreadStore string `help:"Thread id store (json, sqlite)." enum:"json,sqlite" default:"json" env:"BITHABIT_THREAD_STORE" validate:"oneof=json sqlite"`
	ThreadFile  string `help:"Thread id file; defaults to the XDG state directory." env:"BITHABIT_THREAD_FILE" type:"path"`

	CORSOrigins      []string `name:"cors-origin" help:"Allowed CORS origins." default:"*" env:"BITHABIT_CORS_ORIGINS" sep:","`
	MaxMessageTokens int      `help:"Reject messages longer than this many tokens (0 disables)." default:"0" env:"BITHABIT_MAX_MESSAGE_TOKENS" validate:"min=0"`
}

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field string
	Tag   string
	Value any
}

func (e ValidationError) Error() string {
	if e.Tag == "required" || e.Tag == "required_if" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s: validation failed on '%s' with value '%v'", e.Field, e.Tag, e.Value)
}

var validate = validator.New()

// Validate checks every setting and reports all failures together.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var combined error
	for _, e := range verrs {
		combined = multierr.Append(combined, ValidationError{
			Field: envName(e.StructField()),
			Tag:   e.Tag(),
			Value: e.Value(),
		})
	}
	return combined
}

// ThreadPath returns the configured thread store path or the XDG default.
func (c *Config) ThreadPath() string {
	if c.ThreadFile != "" {
		return c.ThreadFile
	}
	if c.ThreadStore == "sqlite" {
		return filepath.Join(xdg.StateHome, appName, "threads.db")
	}
	return filepath.Join(xdg.StateHome, appName, "threads.json")
}

func envName(field string) string {
	switch field {
	case "OpenAIAPIKey":
		return "OPENAI_API_KEY"
	case "ElevenLabsAPIKey":
		return "ELEVENLABS_API_KEY"
	case "AssistantID":
		return "OPENAI_ASSISTANT_ID"
	default:
		return field
	}
}
