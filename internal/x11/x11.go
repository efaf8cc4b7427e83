// Package x11 implements selection.Transport on an X11 display connection
// using the pure-Go xgb protocol bindings.
package x11

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"go.klb.dev/imgclip/internal/selection"
)

// Conn is a display connection plus the 1x1 window that owns the selection.
type Conn struct {
	c      *xgb.Conn
	win    xproto.Window
	maxReq int
}

var _ selection.Transport = (*Conn)(nil)

// Dial connects to display (empty = $DISPLAY) and creates the owner window.
func Dial(display string) (*Conn, error) {
	xgb.Logger = slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug)

	c, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("open display %q: %w", display, err)
	}

	setup := xproto.Setup(c)
	screen := setup.DefaultScreen(c)

	win, err := xproto.NewWindowId(c)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("allocate window id: %w", err)
	}
	// Off-screen and never mapped; it exists only to receive selection events.
	err = xproto.CreateWindowChecked(c, screen.RootDepth, win, screen.Root,
		-10, -10, 1, 1, 0,
		xproto.WindowClassInputOutput, screen.RootVisual,
		0, nil,
	).Check()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("create window: %w", err)
	}

	slog.Debug("display connected",
		"display", display,
		"window", win,
		"max_request_bytes", int(setup.MaximumRequestLength)*4,
	)

	return &Conn{
		c:      c,
		win:    win,
		maxReq: int(setup.MaximumRequestLength) * 4,
	}, nil
}

func (x *Conn) InternAtom(name string) (selection.Atom, error) {
	r, err := xproto.InternAtom(x.c, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return selection.Atom(r.Atom), nil
}

func (x *Conn) AtomName(a selection.Atom) (string, error) {
	r, err := xproto.GetAtomName(x.c, xproto.Atom(a)).Reply()
	if err != nil {
		return "", err
	}
	return r.Name, nil
}

// Claim sets our window as owner of sel and reads the owner back; the
// server silently ignores a SetSelectionOwner it considers stale.
func (x *Conn) Claim(sel selection.Atom) error {
	err := xproto.SetSelectionOwnerChecked(x.c, x.win, xproto.Atom(sel), xproto.TimeCurrentTime).Check()
	if err != nil {
		return err
	}
	r, err := xproto.GetSelectionOwner(x.c, xproto.Atom(sel)).Reply()
	if err != nil {
		return err
	}
	if r.Owner != x.win {
		return fmt.Errorf("%w: owner is window %#x", selection.ErrNotOwner, r.Owner)
	}
	return nil
}

func (x *Conn) WatchProperties(w selection.Window) error {
	err := xproto.ChangeWindowAttributesChecked(x.c, xproto.Window(w),
		xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange},
	).Check()
	return peerError(err)
}

func (x *Conn) ChangeProperty8(w selection.Window, prop, typ selection.Atom, data []byte) error {
	err := xproto.ChangePropertyChecked(x.c, xproto.PropModeReplace,
		xproto.Window(w), xproto.Atom(prop), xproto.Atom(typ),
		8, uint32(len(data)), data,
	).Check()
	return peerError(err)
}

func (x *Conn) ChangeProperty32(w selection.Window, prop, typ selection.Atom, data []uint32) error {
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		xgb.Put32(buf[4*i:], v)
	}
	err := xproto.ChangePropertyChecked(x.c, xproto.PropModeReplace,
		xproto.Window(w), xproto.Atom(prop), xproto.Atom(typ),
		32, uint32(len(data)), buf,
	).Check()
	return peerError(err)
}

func (x *Conn) SendNotify(n selection.Notify) error {
	ev := xproto.SelectionNotifyEvent{
		Time:      xproto.Timestamp(n.Time),
		Requestor: xproto.Window(n.Requestor),
		Selection: xproto.Atom(n.Selection),
		Target:    xproto.Atom(n.Target),
		Property:  xproto.Atom(n.Property),
	}
	err := xproto.SendEventChecked(x.c, false, xproto.Window(n.Requestor),
		xproto.EventMaskNoEvent, string(ev.Bytes()),
	).Check()
	return peerError(err)
}

// NextEvent blocks for the next event. X errors arriving on the event
// queue belong to unchecked requests, which this package never issues, so
// they are logged and skipped.
func (x *Conn) NextEvent() (selection.Event, error) {
	for {
		ev, xerr := x.c.WaitForEvent()
		if ev == nil && xerr == nil {
			return selection.Event{}, selection.ErrClosed
		}
		if xerr != nil {
			slog.Warn("unexpected X error", "err", xerr)
			continue
		}
		return convert(ev), nil
	}
}

func (x *Conn) MaxRequestSize() int { return x.maxReq }

func (x *Conn) Close() error {
	x.c.Close()
	return nil
}

func convert(ev xgb.Event) selection.Event {
	switch e := ev.(type) {
	case xproto.SelectionRequestEvent:
		return selection.Event{
			Kind:      selection.KindSelectionRequest,
			Time:      selection.Timestamp(e.Time),
			Owner:     selection.Window(e.Owner),
			Requestor: selection.Window(e.Requestor),
			Selection: selection.Atom(e.Selection),
			Target:    selection.Atom(e.Target),
			Property:  selection.Atom(e.Property),
		}
	case xproto.SelectionClearEvent:
		return selection.Event{
			Kind:      selection.KindSelectionClear,
			Time:      selection.Timestamp(e.Time),
			Owner:     selection.Window(e.Owner),
			Selection: selection.Atom(e.Selection),
		}
	case xproto.PropertyNotifyEvent:
		return selection.Event{
			Kind:      selection.KindPropertyNotify,
			Time:      selection.Timestamp(e.Time),
			Requestor: selection.Window(e.Window),
			Property:  selection.Atom(e.Atom),
			Deleted:   e.State == xproto.PropertyDelete,
		}
	}
	return selection.Event{Kind: selection.KindOther}
}

// peerError tags BadWindow replies, which mean the requestor window was
// destroyed under us.
func peerError(err error) error {
	if err == nil {
		return nil
	}
	var we xproto.WindowError
	if errors.As(err, &we) {
		return fmt.Errorf("%w: %v", selection.ErrPeerGone, err)
	}
	return err
}
