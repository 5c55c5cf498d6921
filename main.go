package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// 종료 시그널 → context 취소
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
