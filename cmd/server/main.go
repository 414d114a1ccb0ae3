package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/RichardoC/bithabit/internal/config"
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

type CLI struct {
	Config config.Config `embed:""`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the HTTP server (default)."`
	Ask     AskCmd     `cmd:"" help:"Send one message and print the reply."`
	Tools   ToolsCmd   `cmd:"" help:"Print the tool definitions to configure on the assistant."`
	Threads ThreadsCmd `cmd:"" help:"List stored thread ids."`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: loading .env: %v\n", err)
		os.Exit(1)
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("bithabit"),
		kong.Description("BitHabit voice assistant relay"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
