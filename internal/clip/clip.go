// Package clip reads the system clipboard the way a pasting application
// would. imgclip uses it to check what a running owner is serving:
//
//	clip_linux.go  — X11 via golang.design/x/clipboard
//	clip_other.go  — stub for platforms without an X selection
package clip

import (
	"context"
	"log/slog"
)

// Item is one representation found on the clipboard.
type Item struct {
	MIME string
	Data []byte
}

// Reader reads the current clipboard contents.
type Reader interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the text and image forms currently offered. Forms the
	// owner refuses are left out; an empty result is not an error.
	Read() ([]Item, error)
}

// LogItems logs the MIME types read at INFO and, at DEBUG, a text preview of
// up to 120 characters or the size of binary items.
func LogItems(event string, items []Item) {
	mimes := make([]string, len(items))
	for i, it := range items {
		mimes[i] = it.MIME
	}
	slog.Info(event, "types", mimes)

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, it := range items {
		if it.MIME == MIMEText {
			slog.Debug("clipboard item", "mime", it.MIME, "preview", Preview(it.Data, 120))
		} else {
			slog.Debug("clipboard item", "mime", it.MIME, "size_bytes", len(it.Data))
		}
	}
}

// MIMEText is the MIME type reported for the text form.
const MIMEText = "text/plain"

// Preview returns data as a string cut to at most n runes.
func Preview(data []byte, n int) string {
	r := []rune(string(data))
	if len(r) > n {
		return string(r[:n]) + "…"
	}
	return string(r)
}
