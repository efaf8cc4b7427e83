package selection

import (
	"fmt"
	"log/slog"
	"math"

	"go.klb.dev/imgclip/internal/payload"
)

// safetyDivisor scales the server's maximum request size down to the
// largest property write we attempt. ICCCM §2.5 asks owners to stay well
// under the limit; a quarter leaves room for the request header.
const safetyDivisor = 4

// MessageSizeLimit returns the largest payload written in one property
// update for a server accepting maxRequestBytes per request.
func MessageSizeLimit(maxRequestBytes int) int {
	if l := maxRequestBytes / safetyDivisor; l > 0 {
		return l
	}
	return 1
}

// State is the lifecycle of one INCR transfer.
type State int

const (
	Idle State = iota
	Active
	Completing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Completing:
		return "completing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// TransferEvent drives the INCR table.
type TransferEvent int

const (
	// Start is a content request that needs the chunked protocol.
	Start TransferEvent = iota
	// Consumed is the requestor deleting the property.
	Consumed
)

// Action is the protocol work a transition asks for.
type Action int

const (
	NoAction Action = iota
	BeginIncr
	WriteChunk
	WriteTerminator
)

func (a Action) String() string {
	switch a {
	case NoAction:
		return "none"
	case BeginIncr:
		return "begin-incr"
	case WriteChunk:
		return "write-chunk"
	case WriteTerminator:
		return "write-terminator"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Transition is the INCR state table. remaining is the number of payload
// bytes not yet written and limit the session's chunk size.
func Transition(state State, ev TransferEvent, remaining, limit int) (Action, State) {
	if ev == Start {
		return BeginIncr, Active
	}
	switch state {
	case Active:
		if remaining <= limit {
			return WriteChunk, Completing
		}
		return WriteChunk, Active
	case Completing:
		return WriteTerminator, Idle
	}
	return NoAction, Idle
}

// Session is the progress of one chunked transfer.
type Session struct {
	Key    Key
	Target Atom
	Offset int
	Limit  int
	State  State
}

// Transfers tracks INCR sessions per requestor property and performs the
// writes each transition calls for.
type Transfers struct {
	t        Transport
	src      *payload.Source
	incr     Atom
	sessions map[Key]*Session
}

// NewTransfers returns an empty session table writing src over t.
func NewTransfers(t Transport, src *payload.Source, atoms Atoms) *Transfers {
	return &Transfers{
		t:        t,
		src:      src,
		incr:     atoms.Incr,
		sessions: make(map[Key]*Session),
	}
}

// Begin starts, or restarts from offset 0, the transfer requested by req:
// it subscribes to the requestor's property changes, writes the INCR marker
// holding the total size and sends SelectionNotify.
func (x *Transfers) Begin(req Event, limit int) error {
	key := KeyOf(req)
	state := Idle
	if s, ok := x.sessions[key]; ok {
		state = s.State
	}
	action, next := Transition(state, Start, x.src.Size(), limit)
	delete(x.sessions, key)

	switch action {
	case BeginIncr:
		if err := x.t.WatchProperties(req.Requestor); err != nil {
			return fmt.Errorf("watch requestor: %w", err)
		}
		if err := x.t.ChangeProperty32(req.Requestor, req.Property, x.incr, []uint32{incrSize(x.src.Size())}); err != nil {
			return fmt.Errorf("write INCR marker: %w", err)
		}
		if err := x.t.SendNotify(notifyFor(req, req.Property)); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
	default:
		return fmt.Errorf("selection: start from %v yields %v", state, action)
	}

	x.sessions[key] = &Session{
		Key:    key,
		Target: req.Target,
		Limit:  limit,
		State:  next,
	}
	slog.Debug("incr transfer started",
		"requestor", req.Requestor,
		"size_bytes", x.src.Size(),
		"chunk_bytes", limit,
	)
	return nil
}

// incrSize is the value of the INCR marker. It is a lower bound on the
// transfer size, so payloads past 4 GiB saturate.
func incrSize(n int) uint32 {
	if uint64(n) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// Drive applies one property-deleted event for key. Events for keys with no
// session are ignored.
func (x *Transfers) Drive(key Key) (Action, error) {
	s, ok := x.sessions[key]
	if !ok {
		return NoAction, nil
	}
	remaining := x.src.Size() - s.Offset
	action, next := Transition(s.State, Consumed, remaining, s.Limit)

	switch action {
	case WriteChunk:
		n := min(remaining, s.Limit)
		chunk, err := x.src.Bytes(s.Offset, n)
		if err != nil {
			panic("selection: chunk outside payload: " + err.Error())
		}
		if err := x.t.ChangeProperty8(key.Requestor, key.Property, s.Target, chunk); err != nil {
			return action, fmt.Errorf("write chunk at %d: %w", s.Offset, err)
		}
		s.Offset += n
		s.State = next
		slog.Debug("incr chunk written", "requestor", key.Requestor, "offset", s.Offset, "chunk_bytes", n)

	case WriteTerminator:
		if err := x.t.ChangeProperty8(key.Requestor, key.Property, s.Target, nil); err != nil {
			return action, fmt.Errorf("write INCR terminator: %w", err)
		}
		delete(x.sessions, key)
		slog.Debug("incr transfer complete", "requestor", key.Requestor)

	default:
		delete(x.sessions, key)
	}
	return action, nil
}

// Drop forgets the session for key, if any.
func (x *Transfers) Drop(key Key) { delete(x.sessions, key) }

// Lookup returns a copy of the session for key.
func (x *Transfers) Lookup(key Key) (Session, bool) {
	s, ok := x.sessions[key]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Len returns the number of live sessions.
func (x *Transfers) Len() int { return len(x.sessions) }
