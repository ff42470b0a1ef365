package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthur-debert/cellar/pkg/style"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs(rewriteOptionArgs(rootCmd, os.Args[1:]))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		r := style.NewRenderer(style.DetectFormat(os.Stderr), 0)
		fmt.Fprintln(os.Stderr, r.RenderError(err))
		stop()
		os.Exit(1)
	}
}
