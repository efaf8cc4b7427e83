package selection

// Category is what the dispatcher does with an event.
type Category int

const (
	// Ignore covers events that need no action, including our own
	// property writes echoed back as PropertyNotify/NewValue.
	Ignore Category = iota
	// OwnershipLost ends the owner: another client took the selection.
	OwnershipLost
	// TargetsRequest asks for the capability list.
	TargetsRequest
	// ContentRequest asks for the text or image form.
	ContentRequest
	// Refuse covers requests we answer with property None: obsolete
	// requestors that leave the property unset, other selections and
	// unsupported targets.
	Refuse
	// Drive is a requestor deleting a property, which advances an INCR
	// transfer keyed on that property.
	Drive
)

var categoryNames = [...]string{
	Ignore:         "ignore",
	OwnershipLost:  "ownership-lost",
	TargetsRequest: "targets",
	ContentRequest: "content",
	Refuse:         "refuse",
	Drive:          "drive",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// Classify maps a raw event to a Category. It has no side effects.
func Classify(ev Event, atoms Atoms) Category {
	switch ev.Kind {
	case KindSelectionClear:
		if ev.Selection == atoms.Selection {
			return OwnershipLost
		}
		return Ignore

	case KindSelectionRequest:
		if ev.Property == None || ev.Selection != atoms.Selection {
			return Refuse
		}
		switch ev.Target {
		case atoms.Targets:
			return TargetsRequest
		case atoms.Text, atoms.Image:
			return ContentRequest
		}
		return Refuse

	case KindPropertyNotify:
		if ev.Deleted {
			return Drive
		}
		return Ignore
	}
	return Ignore
}

// Key identifies one requestor's destination property.
type Key struct {
	Requestor Window
	Property  Atom
}

// KeyOf returns the transfer key an event refers to.
func KeyOf(ev Event) Key {
	return Key{Requestor: ev.Requestor, Property: ev.Property}
}
