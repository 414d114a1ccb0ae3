package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"
)

func validConfig() *Config {
	return &Config{
		Addr:              ":3000",
		Mode:              ModeAssistant,
		LogLevel:          "info",
		LogFormat:         "json",
		OpenAIAPIKey:      "sk-test",
		AssistantID:       "asst_1",
		ChatModel:         "gpt-3.5-turbo",
		PollInterval:      time.Second,
		MaxPollAttempts:   120,
		RunTimeout:        2 * time.Minute,
		ElevenLabsAPIKey:  "el-test",
		ElevenLabsBaseURL: "https://api.elevenlabs.io",
		VoiceID:           "jsCqWAovK2LkecY7zXl4",
		VoiceModel:        "eleven_multilingual_v2",
		OutputFormat:      "mp3_22050_32",
		SimilarityBoost:   1.0,
		SpeakerBoost:      true,
		ThreadStore:       "json",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "both api keys missing",
			mutate: func(c *Config) {
				c.OpenAIAPIKey = ""
				c.ElevenLabsAPIKey = ""
			},
			wantErr: []string{"OPENAI_API_KEY is required", "ELEVENLABS_API_KEY is required"},
		},
		{
			name:    "assistant id required in assistant mode",
			mutate:  func(c *Config) { c.AssistantID = "" },
			wantErr: []string{"OPENAI_ASSISTANT_ID is required"},
		},
		{
			name: "assistant id optional in chat mode",
			mutate: func(c *Config) {
				c.Mode = ModeChat
				c.AssistantID = ""
			},
		},
		{
			name:    "similarity out of range",
			mutate:  func(c *Config) { c.SimilarityBoost = 1.5 },
			wantErr: []string{"SimilarityBoost"},
		},
		{
			name:    "zero poll attempts",
			mutate:  func(c *Config) { c.MaxPollAttempts = 0 },
			wantErr: []string{"MaxPollAttempts"},
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.ThreadStore = "redis" },
			wantErr: []string{"ThreadStore"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Len(t, multierr.Errors(err), len(tt.wantErr))
			for _, want := range tt.wantErr {
				assert.True(t, strings.Contains(err.Error(), want), "%q not in %q", want, err.Error())
			}
		})
	}
}

func TestThreadPath(t *testing.T) {
	c := validConfig()
	assert.Equal(t, "threads.json", filepath.Base(c.ThreadPath()))
	assert.Equal(t, "bithabit", filepath.Base(filepath.Dir(c.ThreadPath())))

	c.ThreadStore = "sqlite"
	assert.Equal(t, "threads.db", filepath.Base(c.ThreadPath()))

	c.ThreadFile = "/var/lib/bithabit/custom.json"
	assert.Equal(t, "/var/lib/bithabit/custom.json", c.ThreadPath())
}
