// Package selection owns an X selection and answers the peers that ask for
// it. The image payload is offered as TARGETS, the URL text and the image
// bytes; payloads too large for one request go out with the ICCCM INCR
// protocol.
//
// Everything runs on the goroutine that calls Owner.Run. Nothing here is
// safe for concurrent use.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.klb.dev/imgclip/internal/payload"
)

// Owner is the selection owner and event dispatcher.
type Owner struct {
	t         Transport
	src       *payload.Source
	atoms     Atoms
	transfers *Transfers
}

// NewOwner interns the atoms for selection and src's image type on t and
// returns an owner ready to Run.
func NewOwner(t Transport, src *payload.Source, selection string) (*Owner, error) {
	atoms, err := InternAtoms(t, selection, src.MIME())
	if err != nil {
		return nil, err
	}
	return &Owner{
		t:         t,
		src:       src,
		atoms:     atoms,
		transfers: NewTransfers(t, src, atoms),
	}, nil
}

// Atoms returns the interned identifiers.
func (o *Owner) Atoms() Atoms { return o.atoms }

// Transfers returns the INCR session table.
func (o *Owner) Transfers() *Transfers { return o.transfers }

// Run claims the selection and serves requests until ownership is lost,
// which returns nil, or the transport fails.
func (o *Owner) Run() error {
	if err := o.t.Claim(o.atoms.Selection); err != nil {
		return fmt.Errorf("claim selection: %w", err)
	}
	slog.Info("selection owned",
		"mime", o.src.MIME(),
		"size_bytes", o.src.Size(),
		"url", o.src.URL(),
	)

	for {
		ev, err := o.t.NextEvent()
		if err != nil {
			return fmt.Errorf("next event: %w", err)
		}
		done, err := o.Handle(ev)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Handle processes one event. It reports true once ownership is lost.
func (o *Owner) Handle(ev Event) (bool, error) {
	cat := Classify(ev, o.atoms)
	if ev.Kind == KindSelectionRequest {
		o.logRequest(ev, cat)
	}

	var err error
	switch cat {
	case OwnershipLost:
		slog.Info("selection ownership lost, exiting",
			"pending_transfers", o.transfers.Len(),
		)
		return true, nil
	case TargetsRequest:
		err = o.listTargets(ev)
	case ContentRequest:
		err = o.serveContent(ev)
	case Refuse:
		err = o.refuse(ev)
	case Drive:
		_, err = o.transfers.Drive(KeyOf(ev))
	}

	if errors.Is(err, ErrPeerGone) {
		slog.Warn("requestor vanished, dropping transfer",
			"requestor", ev.Requestor,
			"err", err,
		)
		o.transfers.Drop(KeyOf(ev))
		return false, nil
	}
	return false, err
}

func (o *Owner) serveContent(req Event) error {
	if req.Target == o.atoms.Text {
		return o.deliver(req, o.atoms.Text, []byte(o.src.URL()))
	}

	limit := MessageSizeLimit(o.t.MaxRequestSize())
	if o.src.Size() < limit {
		data, err := o.src.Bytes(0, o.src.Size())
		if err != nil {
			panic("selection: whole payload out of range: " + err.Error())
		}
		return o.deliver(req, o.atoms.Image, data)
	}
	return o.transfers.Begin(req, limit)
}

// listTargets answers a TARGETS request with the capability list.
func (o *Owner) listTargets(req Event) error {
	o.transfers.Drop(KeyOf(req))
	list := o.atoms.TargetList()
	data := make([]uint32, len(list))
	for i, a := range list {
		data[i] = uint32(a)
	}
	if err := o.t.ChangeProperty32(req.Requestor, req.Property, o.atoms.Atom, data); err != nil {
		return fmt.Errorf("write targets: %w", err)
	}
	return o.notify(req, req.Property)
}

// deliver writes data in a single property update. Any INCR session still
// parked on the same property is abandoned: the requestor's delete of this
// value must not drive it.
func (o *Owner) deliver(req Event, typ Atom, data []byte) error {
	o.transfers.Drop(KeyOf(req))
	if err := o.t.ChangeProperty8(req.Requestor, req.Property, typ, data); err != nil {
		return fmt.Errorf("write property: %w", err)
	}
	return o.notify(req, req.Property)
}

func (o *Owner) refuse(req Event) error {
	return o.notify(req, None)
}

func (o *Owner) notify(req Event, property Atom) error {
	if err := o.t.SendNotify(notifyFor(req, property)); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func notifyFor(req Event, property Atom) Notify {
	return Notify{
		Requestor: req.Requestor,
		Selection: req.Selection,
		Target:    req.Target,
		Property:  property,
		Time:      req.Time,
	}
}

// logRequest reports the requested target at INFO and the routing decision
// at DEBUG.
func (o *Owner) logRequest(ev Event, cat Category) {
	name, err := o.t.AtomName(ev.Target)
	if err != nil {
		name = fmt.Sprintf("atom:%d", ev.Target)
	}
	slog.Info("requested target", "target", name, "requestor", ev.Requestor)

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	slog.Debug("request routed",
		"target", name,
		"route", cat.String(),
		"property", ev.Property,
	)
}
