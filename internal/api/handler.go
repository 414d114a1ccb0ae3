package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/RichardoC/bithabit/internal/db"
	"github.com/RichardoC/bithabit/internal/format"
	"github.com/RichardoC/bithabit/internal/models"
	"github.com/RichardoC/bithabit/internal/speech"
	"go.uber.org/zap"
)

const maxRequestBodyBytes = 1 << 20

// Relay answers a single message without conversation state.
type Relay interface {
	Reply(ctx context.Context, message string) (string, error)
}

// Assistant answers messages inside a backend-managed thread.
type Assistant interface {
	StartThread(ctx context.Context) (string, error)
	Reply(ctx context.Context, threadID, message string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Options struct {
	// Assistant selects thread mode; when nil, messages go to Relay.
	Assistant   Assistant
	Relay       Relay
	Synthesizer Synthesizer
	Store       db.ThreadStore
	Logger      *zap.Logger

	// Format post-processes assistant replies. Defaults to format.Reply.
	Format func(string) string

	RunTimeout       time.Duration
	MaxMessageTokens int
	CountTokens      func(text string) int
}

type Handler struct {
	assistant        Assistant
	relay            Relay
	synth            Synthesizer
	store            db.ThreadStore
	logger           *zap.Logger
	format           func(string) string
	runTimeout       time.Duration
	maxMessageTokens int
	countTokens      func(string) int
}

func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Format == nil {
		opts.Format = format.Reply
	}
	return &Handler{
		assistant:        opts.Assistant,
		relay:            opts.Relay,
		synth:            opts.Synthesizer,
		store:            opts.Store,
		logger:           opts.Logger,
		format:           opts.Format,
		runTimeout:       opts.RunTimeout,
		maxMessageTokens: opts.MaxMessageTokens,
		countTokens:      opts.CountTokens,
	}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("BitHabit server is running!"))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StartThread creates a new conversation thread and records its id.
func (h *Handler) StartThread(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	threadID, err := h.assistant.StartThread(r.Context())
	if err != nil {
		logger.Error("Failed to create thread", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.store != nil {
		if err := h.store.SaveThread(r.Context(), threadID); err != nil {
			logger.Error("Failed to save thread id", zap.Error(err), zap.String("thread_id", threadID))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, models.StartResponse{ThreadID: threadID})
}

func (h *Handler) GetThreads(w http.ResponseWriter, r *http.Request) {
	ids := []string{}
	if h.store != nil {
		stored, err := h.store.ListThreads(r.Context())
		if err != nil {
			h.requestLogger(r).Error("Failed to list threads", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if stored != nil {
			ids = stored
		}
	}

	writeJSON(w, http.StatusOK, models.ThreadsResponse{ThreadIDs: ids})
}

func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	var req models.MessageRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		logger.Error("No message provided in request")
		writeError(w, http.StatusBadRequest, "No message provided")
		return
	}
	if h.assistant != nil && strings.TrimSpace(req.ThreadID) == "" {
		logger.Error("No thread_id provided in request")
		writeError(w, http.StatusBadRequest, "No thread_id provided")
		return
	}
	if h.maxMessageTokens > 0 && h.countTokens != nil {
		if n := h.countTokens(req.Message); n > h.maxMessageTokens {
			logger.Warn("Message exceeds token budget", zap.Int("tokens", n), zap.Int("max", h.maxMessageTokens))
			writeError(w, http.StatusBadRequest, "Message too long")
			return
		}
	}

	logger.Debug("Received user message", zap.String("message", req.Message), zap.String("thread_id", req.ThreadID))

	reply, err := h.reply(r.Context(), req)
	if err != nil {
		logger.Error("Error processing message", zap.Error(err), zap.String("message", req.Message))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := models.MessageResponse{Reply: reply}
	if audio := h.synthesize(r.Context(), logger, reply); audio != "" {
		resp.Audio = &audio
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) reply(ctx context.Context, req models.MessageRequest) (string, error) {
	if h.assistant == nil {
		return h.relay.Reply(ctx, req.Message)
	}

	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	reply, err := h.assistant.Reply(ctx, req.ThreadID, req.Message)
	if err != nil {
		return "", err
	}
	return h.format(reply), nil
}

// synthesize returns base64 audio, or "" when synthesis is unavailable or fails.
func (h *Handler) synthesize(ctx context.Context, logger *zap.Logger, text string) string {
	if h.synth == nil {
		return ""
	}

	audio, err := h.synth.Synthesize(ctx, text)
	if err != nil {
		logger.Error("Failed to generate speech", zap.Error(err))
		return ""
	}
	if len(audio) == 0 {
		logger.Warn("Speech synthesis returned no audio")
		return ""
	}
	return speech.EncodeAudio(audio)
}

func (h *Handler) requestLogger(r *http.Request) *zap.Logger {
	if id := RequestIDFromContext(r.Context()); id != "" {
		return h.logger.With(zap.String("request_id", id))
	}
	return h.logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
