package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/fblog/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	// A closed stdout must surface as EPIPE on write instead of killing the
	// process, so the pipeline can stop quietly.
	signal.Ignore(syscall.SIGPIPE)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCmd(app.Run)
	cmd.SetArgs(os.Args[1:])
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fblog: %v\n", err)
		return 1
	}
	return 0
}
