// imgclip: serve an image file on the X11 clipboard.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/imgclip/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

// Exit statuses.
const (
	exitOK      = 0
	exitDisplay = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.AddCommand(
		newPeekCmd(),
		newVersionCmd(),
	)

	cmd, err := root.ExecuteC()
	if err == nil {
		return exitOK
	}
	if cmd == nil {
		cmd = root
	}
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n%s", ue.err, cmd.UsageString())
		return exitUsage
	}
	slog.Error("imgclip failed", "err", err)
	return exitDisplay
}

// usageError marks a bad invocation: exit 2, usage printed, nothing sent to
// the display.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, a ...any) error {
	return &usageError{err: fmt.Errorf(format, a...)}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("imgclip %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	fallback := slog.LevelInfo
	if interactive {
		fallback = slog.LevelDebug
	}
	logging.Setup(logging.ParseFormat(formatStr), logging.ParseLevel(levelStr, fallback))
}
