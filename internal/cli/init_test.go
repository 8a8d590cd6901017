package cli

import (
	"context"
	"io"
	"log/slog"
	"syscall"
	"testing"
	"time"
)

func TestGracefulShutdownRunsCleanupOnSignal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cleanupCtx := make(chan context.Context, 1)
	ctx, done := GracefulShutdown(logger, 5*time.Second, func(shutdownCtx context.Context) {
		cleanupCtx <- shutdownCtx
	})

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("send signal: %v", err)
	}

	select {
	case shutdownCtx := <-cleanupCtx:
		if _, ok := shutdownCtx.Deadline(); !ok {
			t.Error("cleanup context carries no deadline")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup never ran")
	}

	WaitForShutdown(ctx, done)
	if ctx.Err() == nil {
		t.Error("returned context not cancelled after shutdown")
	}
}
