package selection

import "errors"

// Atom is an X atom identifier.
type Atom uint32

// Window is an X window identifier.
type Window uint32

// Timestamp is an X server timestamp.
type Timestamp uint32

// None is the zero atom/window. A SelectionNotify carrying property None is
// a refusal.
const None = 0

var (
	// ErrClosed is returned by Transport.NextEvent once the display
	// connection has gone away.
	ErrClosed = errors.New("selection: transport closed")

	// ErrPeerGone marks a failed write aimed at a requestor window that no
	// longer exists. It only ends that peer's transfer.
	ErrPeerGone = errors.New("selection: requestor window gone")

	// ErrNotOwner is returned by Claim when the server did not confirm us
	// as the selection owner.
	ErrNotOwner = errors.New("selection: ownership not confirmed")
)

// EventKind tags the raw transport events the dispatcher cares about.
type EventKind int

const (
	KindOther EventKind = iota
	KindSelectionRequest
	KindSelectionClear
	KindPropertyNotify
)

// Event is a raw transport event. Fields not used by Kind are zero.
//
// For KindPropertyNotify, Requestor is the window whose property changed,
// Property is that property and Deleted reports whether it was deleted.
type Event struct {
	Kind      EventKind
	Time      Timestamp
	Owner     Window
	Requestor Window
	Selection Atom
	Target    Atom
	Property  Atom
	Deleted   bool
}

// Notify is a SelectionNotify sent back to a requestor.
type Notify struct {
	Requestor Window
	Selection Atom
	Target    Atom
	Property  Atom
	Time      Timestamp
}

// Transport is the display-server connection the owner runs on. Every call
// is a single attempt; implementations do not retry.
type Transport interface {
	InternAtom(name string) (Atom, error)
	AtomName(a Atom) (string, error)

	// Claim takes ownership of selection and confirms it with the server.
	Claim(selection Atom) error

	// WatchProperties asks for PropertyNotify events on w.
	WatchProperties(w Window) error

	ChangeProperty8(w Window, property, typ Atom, data []byte) error
	ChangeProperty32(w Window, property, typ Atom, data []uint32) error
	SendNotify(n Notify) error

	// NextEvent blocks until the next event arrives.
	NextEvent() (Event, error)

	// MaxRequestSize is the largest request the server accepts, in bytes.
	MaxRequestSize() int

	Close() error
}
