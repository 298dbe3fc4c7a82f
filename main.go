package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"
)

// devStep is one command of the local development loop.
type devStep struct {
	Name string
	Args []string
	Env  []string
}

var devSteps = []devStep{
	{
		Name: "build-site-wasm",
		Args: []string{"go", "build", "-o", "web/main.wasm", "./cmd/site-wasm"},
		Env:  []string{"GOOS=js", "GOARCH=wasm"},
	},
	{
		Name: "site-server",
		Args: []string{
			"go", "run", "./cmd/site-server", "serve",
			"--addr", "127.0.0.1",
			"--port", "8080",
			"--assets", "web",
			"--log-level", "debug",
		},
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runSteps(ctx, devSteps); err != nil {
		fmt.Fprintf(os.Stderr, "quinfall-site: %v\n", err)
		os.Exit(1)
	}
}

// runSteps runs each step in order and stops at the first failure. An interrupt ends the
// running step with SIGINT and counts as a clean exit.
func runSteps(ctx context.Context, steps []devStep) error {
	if len(steps) == 0 {
		return errors.New("no steps configured")
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil
		}
		cmd := exec.CommandContext(ctx, step.Args[0], step.Args[1:]...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
		cmd.WaitDelay = 2 * time.Second
		if len(step.Env) > 0 {
			cmd.Env = append(os.Environ(), step.Env...)
		}
		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%s: %w", step.Name, err)
		}
	}
	return nil
}
