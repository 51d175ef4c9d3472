package main

import (
	"context"
	"testing"
	"time"

	"go.uber.org/fx"
)

func TestRunReportsNonZeroExit(t *testing.T) {
	var shutdowner fx.Shutdowner
	app := fx.New(fx.NopLogger, fx.Populate(&shutdowner))

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = shutdowner.Shutdown(fx.ExitCode(1))
	}()

	if err := run(context.Background(), app); err == nil {
		t.Fatal("expected error for non-zero exit code")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	app := fx.New(fx.NopLogger)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if err := run(ctx, app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
