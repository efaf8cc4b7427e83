//go:build linux

package clip

import (
	"fmt"

	"golang.design/x/clipboard"
)

type linuxReader struct{}

// New returns the X11 clipboard reader. It fails when no display is
// reachable or the binary was built without cgo.
func New() (Reader, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("clipboard unavailable: %w", err)
	}
	return linuxReader{}, nil
}

func (linuxReader) Name() string { return "X11 CLIPBOARD" }

func (linuxReader) Read() ([]Item, error) {
	var items []Item
	if text := clipboard.Read(clipboard.FmtText); text != nil {
		items = append(items, Item{MIME: MIMEText, Data: text})
	}
	if img := clipboard.Read(clipboard.FmtImage); img != nil {
		items = append(items, Item{MIME: "image/png", Data: img})
	}
	return items, nil
}
