package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Initialize context that cancelled on SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Getenv, os.Getwd, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tasktracker: %v\n", err)
		os.Exit(1)
	}
}

// run reads configuration (.env, environment, flags in that order) and serves until ctx is done
func run(ctx context.Context, getenv func(string) string, getwd func() (string, error), args []string) error {
	c := NewConfig()

	if err := c.LoadDotEnv(getwd); err != nil {
		return fmt.Errorf("can't read .env file: %w", err)
	}
	if err := c.LoadEnv(getenv); err != nil {
		return fmt.Errorf("can't read environment: %w", err)
	}
	if err := c.ParseFlags(args); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	app, err := NewServerApp(ctx, c)
	if err != nil {
		return fmt.Errorf("can't initialize app: %w", err)
	}
	defer app.Close()

	return app.Run(ctx)
}
