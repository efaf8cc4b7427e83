package selection

import "fmt"

// Target names for the fixed formats.
const (
	TargetsName  = "TARGETS"
	TextName     = "UTF8_STRING"
	IncrName     = "INCR"
	AtomTypeName = "ATOM"
)

// Atoms holds every identifier the owner needs. It is filled once by
// InternAtoms and never modified.
type Atoms struct {
	Selection Atom
	Targets   Atom
	Text      Atom
	Image     Atom
	Incr      Atom
	Atom      Atom
}

// InternAtoms resolves the selection name, the image target name and the
// fixed protocol atoms on t.
func InternAtoms(t Transport, selection, image string) (Atoms, error) {
	var a Atoms
	for _, f := range []struct {
		name string
		dst  *Atom
	}{
		{selection, &a.Selection},
		{TargetsName, &a.Targets},
		{TextName, &a.Text},
		{image, &a.Image},
		{IncrName, &a.Incr},
		{AtomTypeName, &a.Atom},
	} {
		atom, err := t.InternAtom(f.name)
		if err != nil {
			return Atoms{}, fmt.Errorf("intern %s: %w", f.name, err)
		}
		*f.dst = atom
	}
	return a, nil
}

// TargetList returns the capability list in the order it is advertised.
func (a Atoms) TargetList() []Atom {
	return []Atom{a.Targets, a.Image, a.Text}
}
