// Package speech turns reply text into audio through the ElevenLabs
// text-to-speech streaming endpoint.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL      = "https://api.elevenlabs.io"
	DefaultVoiceID      = "jsCqWAovK2LkecY7zXl4"
	DefaultModelID      = "eleven_multilingual_v2"
	DefaultOutputFormat = "mp3_22050_32"

	chunkSize      = 32 * 1024
	defaultTimeout = 60 * time.Second
)

var ErrEmptyText = errors.New("speech: text is empty")

// VoiceSettings mirrors the voice_settings object of the synthesis request.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Profile is the fixed voice used for every reply.
type Profile struct {
	VoiceID         string
	ModelID         string
	OutputFormat    string
	OptimizeLatency int
	Settings        VoiceSettings
}

func DefaultProfile() Profile {
	return Profile{
		VoiceID:         DefaultVoiceID,
		ModelID:         DefaultModelID,
		OutputFormat:    DefaultOutputFormat,
		OptimizeLatency: 0,
		Settings: VoiceSettings{
			Stability:       0.0,
			SimilarityBoost: 1.0,
			Style:           0.0,
			UseSpeakerBoost: true,
		},
	}
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs error %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	APIKey     string
	BaseURL    string
	Profile    Profile
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type ElevenLabs struct {
	apiKey     string
	baseURL    string
	profile    Profile
	httpClient *http.Client
	logger     *zap.Logger
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

func NewElevenLabs(cfg Config) *ElevenLabs {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Profile.VoiceID == "" {
		cfg.Profile = DefaultProfile()
	}
	return &ElevenLabs{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		profile:    cfg.Profile,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

// Synthesize returns the complete audio for text. The response is read as a
// stream of chunks; every non-empty chunk is appended to one buffer.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(synthesisRequest{
		Text:          text,
		ModelID:       e.profile.ModelID,
		VoiceSettings: e.profile.Settings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var audio bytes.Buffer
	chunk := make([]byte, chunkSize)
	chunks := 0
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			audio.Write(chunk[:n])
			chunks++
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("failed to read audio stream: %w", readErr)
		}
	}

	e.logger.Debug("synthesized speech",
		zap.Int("chars", len(text)),
		zap.Int("chunks", chunks),
		zap.Int("bytes", audio.Len()),
		zap.Duration("duration", time.Since(start)))
	return audio.Bytes(), nil
}

func (e *ElevenLabs) endpoint() string {
	q := url.Values{}
	q.Set("output_format", e.profile.OutputFormat)
	q.Set("optimize_streaming_latency", strconv.Itoa(e.profile.OptimizeLatency))
	return fmt.Sprintf("%s/v1/text-to-speech/%s/stream?%s",
		e.baseURL, url.PathEscape(e.profile.VoiceID), q.Encode())
}

// EncodeAudio encodes audio for JSON transport.
func EncodeAudio(audio []byte) string {
	return base64.StdEncoding.EncodeToString(audio)
}
