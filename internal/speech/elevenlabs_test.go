package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeConcatenatesChunks(t *testing.T) {
	var got synthesisRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/text-to-speech/"+DefaultVoiceID+"/stream", r.URL.Path)
		assert.Equal(t, "mp3_22050_32", r.URL.Query().Get("output_format"))
		assert.Equal(t, "0", r.URL.Query().Get("optimize_streaming_latency"))
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "audio/mpeg")
		for _, part := range []string{"ID3", "", "frame-1", "frame-2"} {
			w.Write([]byte(part))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	tts := NewElevenLabs(Config{APIKey: "secret", BaseURL: srv.URL})
	audio, err := tts.Synthesize(context.Background(), "Hei maailma")
	require.NoError(t, err)
	assert.Equal(t, "ID3frame-1frame-2", string(audio))

	assert.Equal(t, "Hei maailma", got.Text)
	assert.Equal(t, DefaultModelID, got.ModelID)
	assert.Equal(t, DefaultProfile().Settings, got.VoiceSettings)

	decoded, err := base64.StdEncoding.DecodeString(EncodeAudio(audio))
	require.NoError(t, err)
	assert.Equal(t, audio, decoded)
}

func TestSynthesizeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer srv.Close()

	tts := NewElevenLabs(Config{APIKey: "bad", BaseURL: srv.URL})
	_, err := tts.Synthesize(context.Background(), "hello")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "invalid api key")
}

func TestSynthesizeEmptyText(t *testing.T) {
	tts := NewElevenLabs(Config{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	_, err := tts.Synthesize(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestCustomProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-x/stream", r.URL.Path)
		assert.Equal(t, "pcm_16000", r.URL.Query().Get("output_format"))
		assert.Equal(t, "3", r.URL.Query().Get("optimize_streaming_latency"))
		w.Write([]byte("pcm"))
	}))
	defer srv.Close()

	profile := DefaultProfile()
	profile.VoiceID = "voice-x"
	profile.OutputFormat = "pcm_16000"
	profile.OptimizeLatency = 3

	tts := NewElevenLabs(Config{APIKey: "k", BaseURL: srv.URL + "/", Profile: profile})
	audio, err := tts.Synthesize(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []byte("pcm"), audio)
}
