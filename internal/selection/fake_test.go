package selection

import (
	"fmt"
	"testing"

	"go.klb.dev/imgclip/internal/payload"
)

// write is one property update recorded by fakeTransport.
type write struct {
	Window   Window
	Property Atom
	Type     Atom
	Format   int
	Data8    []byte
	Data32   []uint32
}

// fakeTransport records every call and replays a scripted event queue.
type fakeTransport struct {
	atoms    map[string]Atom
	names    map[Atom]string
	maxReq   int
	events   []Event
	claimed  []Atom
	claimErr error
	watched  []Window
	writes   []write
	notifies []Notify
	// failWrites makes property writes to these windows fail.
	failWrites map[Window]error
	closed     bool
}

func newFakeTransport(maxReq int) *fakeTransport {
	return &fakeTransport{
		atoms:      make(map[string]Atom),
		names:      make(map[Atom]string),
		maxReq:     maxReq,
		failWrites: make(map[Window]error),
	}
}

func (f *fakeTransport) InternAtom(name string) (Atom, error) {
	if a, ok := f.atoms[name]; ok {
		return a, nil
	}
	a := Atom(100 + len(f.atoms))
	f.atoms[name] = a
	f.names[a] = name
	return a, nil
}

func (f *fakeTransport) AtomName(a Atom) (string, error) {
	if n, ok := f.names[a]; ok {
		return n, nil
	}
	return "", fmt.Errorf("bad atom %d", a)
}

func (f *fakeTransport) Claim(sel Atom) error {
	if f.claimErr != nil {
		return f.claimErr
	}
	f.claimed = append(f.claimed, sel)
	return nil
}

func (f *fakeTransport) WatchProperties(w Window) error {
	f.watched = append(f.watched, w)
	return nil
}

func (f *fakeTransport) ChangeProperty8(w Window, prop, typ Atom, data []byte) error {
	if err := f.failWrites[w]; err != nil {
		return err
	}
	f.writes = append(f.writes, write{Window: w, Property: prop, Type: typ, Format: 8, Data8: append([]byte(nil), data...)})
	return nil
}

func (f *fakeTransport) ChangeProperty32(w Window, prop, typ Atom, data []uint32) error {
	if err := f.failWrites[w]; err != nil {
		return err
	}
	f.writes = append(f.writes, write{Window: w, Property: prop, Type: typ, Format: 32, Data32: append([]uint32(nil), data...)})
	return nil
}

func (f *fakeTransport) SendNotify(n Notify) error {
	f.notifies = append(f.notifies, n)
	return nil
}

func (f *fakeTransport) NextEvent() (Event, error) {
	if len(f.events) == 0 {
		return Event{}, ErrClosed
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev, nil
}

func (f *fakeTransport) MaxRequestSize() int { return f.maxReq }

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

// chunkSizes returns the length of every 8-bit write to w.
func (f *fakeTransport) chunkSizes(w Window) []int {
	var out []int
	for _, wr := range f.writes {
		if wr.Window == w && wr.Format == 8 {
			out = append(out, len(wr.Data8))
		}
	}
	return out
}

// newTestOwner builds an owner over a payload of size bytes with a chunk
// limit of exactly limit bytes.
func newTestOwner(t *testing.T, size, limit int) (*Owner, *fakeTransport) {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	src := payload.New(data, "https://example.com/upload/shot.png", "image/png")
	ft := newFakeTransport(limit * safetyDivisor)
	o, err := NewOwner(ft, src, "CLIPBOARD")
	if err != nil {
		t.Fatalf("NewOwner: %v", err)
	}
	return o, ft
}

func request(o *Owner, requestor Window, property, target Atom) Event {
	return Event{
		Kind:      KindSelectionRequest,
		Time:      42,
		Requestor: requestor,
		Selection: o.Atoms().Selection,
		Target:    target,
		Property:  property,
	}
}

func consumed(requestor Window, property Atom) Event {
	return Event{
		Kind:      KindPropertyNotify,
		Requestor: requestor,
		Property:  property,
		Deleted:   true,
	}
}

func mustHandle(t *testing.T, o *Owner, ev Event) {
	t.Helper()
	done, err := o.Handle(ev)
	if err != nil {
		t.Fatalf("Handle(%+v): %v", ev, err)
	}
	if done {
		t.Fatalf("Handle(%+v) ended the owner", ev)
	}
}
