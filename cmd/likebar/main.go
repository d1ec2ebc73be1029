package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/five82/likebar/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional, defaults to ~/.config/likebar/config.toml)")
	envFile := flag.String("env", ".env", "dotenv file with LIKEBAR_* overrides (optional)")
	pollSeconds := flag.Int("poll", 0, "poll interval in seconds (optional, defaults to 5s)")
	logPath := flag.String("log", "", "override log file path (optional)")
	ephemeral := flag.Bool("ephemeral", false, "do not persist liked pages")
	debug := flag.Bool("debug", false, "log debug records")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "likebar: load %s: %v\n", *envFile, err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		LogPath:    *logPath,
		Ephemeral:  *ephemeral,
		Debug:      *debug,
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "likebar: %v\n", err)
		return 1
	}
	return 0
}
