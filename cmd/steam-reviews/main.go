// Command steam-reviews downloads Steam user reviews for one app and writes
// them to CSV and Parquet.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/steam-reviews/internal/ui"
)

// Set by ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, ui.New(), os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, u *ui.UI, args []string) int {
	cmd := newRootCmd(u)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		u.Error("%v", err)
		return 1
	}
	return 0
}
