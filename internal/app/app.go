package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vidfriends/vidfeed/internal/config"
)

const usage = `usage: vidfeed <command> [flags]

store server:
  serve                         run the feed store HTTP endpoint
  migrate [up|status]           apply or list database migrations
  seed <name>                   load seeds/<name>_seed.sql

feed client:
  feed [--expand ID]            print the feed
  like <video-id>               like or unlike a video
  comment <video-id> <text>     comment on a video
  upload --title T --video F    publish a video (optional --thumbnail F)
  thumbnail <video-id> <file>   replace the thumbnail of your video
  avatar <file>                 replace your avatar
  share <video-id>              print the share link of a video`

// Run dispatches a vidfeed command.
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return errors.New("expected a command")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	command, rest := args[0], args[1:]
	switch command {
	case "serve":
		return serve(ctx, cfg, newLogger(stdout, cfg.LogLevel))
	case "migrate":
		return runMigrations(ctx, cfg, newLogger(stdout, cfg.LogLevel), rest)
	case "seed":
		return runSeed(ctx, cfg, newLogger(stdout, cfg.LogLevel), rest)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage)
		return nil
	}

	if handler, ok := clientCommands[command]; ok {
		return runClient(ctx, cfg, command, handler, rest, stdout, stderr)
	}
	fmt.Fprintln(stderr, usage)
	return fmt.Errorf("unknown command %q", command)
}

// newLogger builds the JSON logger used by every command and installs it as
// the process default.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: lvl <= slog.LevelDebug,
		Level:     lvl,
	}))
	slog.SetDefault(logger)
	return logger
}
