package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/RichardoC/bithabit/internal/api"
	"github.com/RichardoC/bithabit/internal/db"
	"github.com/RichardoC/bithabit/internal/format"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct{}

func (s *ServeCmd) Run(cli *CLI) (err error) {
	cfg := &cli.Config
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, a.Close()) }()

	handler := api.NewHandler(a.handlerOptions())
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(handler, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.Addr), zap.String("mode", cfg.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type AskCmd struct {
	Text     []string `arg:"" help:"Message to send."`
	ThreadID string   `name:"thread" help:"Continue an existing thread (assistant mode)."`
	AudioOut string   `short:"o" help:"Write the spoken reply to this file." type:"path"`
}

func (c *AskCmd) Run(cli *CLI) (err error) {
	cfg := &cli.Config
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, a.Close()) }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	message := strings.Join(c.Text, " ")
	if strings.TrimSpace(message) == "" {
		return errors.New("no message provided")
	}

	var reply string
	if a.assistant != nil {
		threadID := c.ThreadID
		if threadID == "" {
			if threadID, err = a.assistant.StartThread(ctx); err != nil {
				return err
			}
			if err := a.store.SaveThread(ctx, threadID); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "thread: %s\n", threadID)
		}
		if reply, err = a.assistant.Reply(ctx, threadID, message); err != nil {
			return err
		}
		reply = format.Reply(reply)
	} else {
		if reply, err = a.relay.Reply(ctx, message); err != nil {
			return err
		}
	}
	fmt.Println(reply)

	if c.AudioOut == "" {
		return nil
	}
	audio, err := a.speech.Synthesize(ctx, reply)
	if err != nil {
		return fmt.Errorf("failed to generate speech: %w", err)
	}
	return os.WriteFile(c.AudioOut, audio, 0o644)
}

type ToolsCmd struct{}

func (c *ToolsCmd) Run(cli *CLI) error {
	registry, err := newRegistry(zap.NewNop())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(registry.Definitions())
}

type ThreadsCmd struct{}

func (c *ThreadsCmd) Run(cli *CLI) (err error) {
	store, err := db.Open(cli.Config.ThreadStore, cli.Config.ThreadPath())
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	ids, err := store.ListThreads(context.Background())
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
