package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/onnwee/fmmtree/backend/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.Error("fmmtree failed", "error", err)
		stop()
		os.Exit(1)
	}
}
