package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"go.klb.dev/imgclip/internal/payload"
	"go.klb.dev/imgclip/internal/selection"
	"go.klb.dev/imgclip/internal/x11"
)

const defaultBaseURL = "https://example.com/upload/"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imgclip [flags] <image> [base-url]",
		Short: "Serve an image file on the X11 clipboard",
		Long: `imgclip takes ownership of the X11 CLIPBOARD selection and offers one image
to any application that pastes:

  TARGETS      the list of forms below
  UTF8_STRING  <base-url><file name>, e.g. https://example.com/upload/shot.png
  image/...    the raw image bytes (type detected from the file, default image/png)

Large images are sent with the ICCCM INCR protocol. imgclip exits as soon as
another application takes the clipboard.

The base URL comes from the second argument, --base-url, IMGCLIP_BASE_URL or
the config file, in that order.

Config file search order (first found wins):
  /etc/imgclip/imgclip.toml
  $HOME/.config/imgclip/imgclip.toml
  path supplied via --config

Exit status: 0 when the clipboard is taken over, 1 when the display cannot be
used, 2 on invalid arguments.`,
		Args:          serveArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return runServe(s, args)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	f := cmd.Flags()
	f.String("base-url", defaultBaseURL, "URL prefix the file name is appended to")
	f.String("selection", "CLIPBOARD", "selection to own (CLIPBOARD or PRIMARY)")
	f.String("display", "", "X display to connect to (default: $DISPLAY)")
	addLoggingFlags(f)
	addConfigFlag(f)

	return cmd
}

func serveArgs(_ *cobra.Command, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageErrorf("expected <image> [base-url], got %d argument(s)", len(args))
	}
	return nil
}

func runServe(s settings, args []string) error {
	s.startLogging()

	src, err := payload.Load(args[0], s.baseURL(args))
	if err != nil {
		return &usageError{err: err}
	}

	slog.Info("imgclip starting",
		"version", Version,
		"image", args[0],
		"mime", src.MIME(),
		"size_bytes", src.Size(),
		"blake3", src.Digest(),
		"url", src.URL(),
	)

	conn, err := x11.Dial(s.Display)
	if err != nil {
		return fmt.Errorf("could not open X display: %w", err)
	}
	defer conn.Close()

	owner, err := selection.NewOwner(conn, src, s.Selection)
	if err != nil {
		return err
	}
	return owner.Run()
}
