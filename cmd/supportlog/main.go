// Command supportlog imports and exports support-log records from the
// command line, against the same store the server uses.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JonMunkholm/supportlog/internal/application"
	"github.com/JonMunkholm/supportlog/internal/config"
	"github.com/JonMunkholm/supportlog/internal/logging"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// nowUTC is replaced in tests.
var nowUTC = func() time.Time { return time.Now().UTC() }

func main() {
	// Load .env if present; real environment variables take precedence.
	_ = godotenv.Load()

	open := func(ctx context.Context) (*application.App, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		// Logs go to stderr so exported data on stdout stays clean.
		slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))
		return application.New(ctx, cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newCLIApp(open)
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		code := 1
		if ec, ok := err.(cli.ExitCoder); ok && ec.ExitCode() != 0 {
			code = ec.ExitCode()
		}
		os.Exit(code)
	}
}
