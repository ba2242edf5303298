// Command memo runs the voice memo pipeline from the shell.
//
// Usage:
//
//	memo [flags] <command> [flags]
//
// Commands:
//
//	process    - transcribe, title and store a recording
//	transcribe - print the transcript of an audio file
//	repair     - try every re-encode strategy on a damaged file
//	validate   - check a file's container header and audio stream
//	export     - write all recordings to an xlsx workbook
//	import     - add recordings from an exported workbook
//
// Configuration is read from the environment and a local .env file, the
// same variables the API server reads.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"voice-memos-go/cmd/memo/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
