package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/okian/simplehttp/internal/smoke"
	"github.com/okian/simplehttp/pkg/logger"
)

// defaultWorkers is a multiplier for runtime.NumCPU().
const defaultWorkers = 2

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		_, _ = os.Stderr.WriteString("smoke test failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "smoke",
		Usage:           "exercise every endpoint of a running simplehttp server",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "base URL of the server",
				Value:   smoke.DefaultURL,
				EnvVars: []string{"SMOKE_URL"},
			},
			&cli.IntFlag{
				Name:  "rounds",
				Usage: "how many times every check runs",
				Value: smoke.DefaultRounds,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "number of concurrent workers",
				Value: runtime.NumCPU() * defaultWorkers,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "HTTP request timeout",
				Value: smoke.DefaultTimeout,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "log every check, not only failures",
				Aliases: []string{"v"},
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	if err := logger.Init(); err != nil {
		return err
	}
	if c.Bool("verbose") {
		_ = logger.SetLevelString("debug")
	}

	cfg := &smoke.Config{
		BaseURL: c.String("url"),
		Rounds:  c.Int("rounds"),
		Workers: c.Int("workers"),
		Timeout: c.Duration("timeout"),
		Verbose: c.Bool("verbose"),
	}

	ctx := logger.ContextWithLogger(c.Context, logger.Named("smoke"))
	_, err := smoke.Run(ctx, cfg)
	return err
}
