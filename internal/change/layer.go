// Package change tracks every object changed, created or deleted during an
// editing session on top of a read-only base table.
//
// The package hands out two values from New. A *Layer is the read view and
// may be shared freely. A *Mutator is the only way to alter pending state;
// the revision manager keeps it private so every mutation passes through its
// policy checks first.
package change

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/jpl-au/revdoc/internal/xref"
	"github.com/jpl-au/revdoc/object"
)

// ErrDuplicateReservation means allocation produced an id that is already
// live or pending. It signals a broken invariant, not a caller mistake.
var ErrDuplicateReservation = errors.New("duplicate reservation")

// Base is the read-only table the layer falls back to.
type Base interface {
	Fetch(id object.ID) (object.Object, error)
	Has(id object.ID) bool
	Count() int
	Size() uint32
	IDs() []object.ID
}

// State of a pending entry.
type State int

const (
	None        State = iota // Not pending
	Reserved                 // Allocated, no value yet
	Initialized              // Holds a value
	Deleted                  // Tombstone
)

func (s State) String() string {
	switch s {
	case None:
		return "none"
	case Reserved:
		return "reserved"
	case Initialized:
		return "initialized"
	case Deleted:
		return "deleted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type entry struct {
	state State
	obj   object.Object
}

// Layer resolves reads against pending state first, then the base table.
type Layer struct {
	base    Base
	pending map[object.ID]*entry
	next    uint32 // lowest number Reserve may hand out
}

// New wraps base. The returned Mutator must not be handed to ordinary
// consumers.
func New(base Base) (*Layer, *Mutator) {
	l := &Layer{base: base, pending: make(map[object.ID]*entry)}
	return l, &Mutator{l: l}
}

// Fetch returns the pending value for id if one exists, else the base
// table's. Reserved and deleted ids are not found.
func (l *Layer) Fetch(id object.ID) (object.Object, error) {
	if e, ok := l.pending[id]; ok {
		if e.state != Initialized {
			return nil, fmt.Errorf("%w: %s (%s)", xref.ErrNotFound, id, e.state)
		}
		return e.obj, nil
	}
	return l.base.Fetch(id)
}

// Has reports whether Fetch would succeed for id.
func (l *Layer) Has(id object.ID) bool {
	if e, ok := l.pending[id]; ok {
		return e.state == Initialized
	}
	return l.base.Has(id)
}

// State returns the pending state of id, None when it is not pending.
func (l *Layer) State(id object.ID) State {
	if e, ok := l.pending[id]; ok {
		return e.state
	}
	return None
}

// Count returns the number of objects visible through Fetch.
func (l *Layer) Count() int {
	n := l.base.Count()
	for id, e := range l.pending {
		inBase := l.base.Has(id)
		switch {
		case e.state == Initialized && !inBase:
			n++
		case e.state == Deleted && inBase:
			n--
		}
	}
	return n
}

// IDs returns every id visible through Fetch, ascending.
func (l *Layer) IDs() []object.ID {
	seen := make(map[object.ID]bool)
	for _, id := range l.base.IDs() {
		seen[id] = true
	}
	for id, e := range l.pending {
		seen[id] = e.state == Initialized
	}
	ids := make([]object.ID, 0, len(seen))
	for id, ok := range seen {
		if ok {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, object.ID.Compare)
	return ids
}

// Pending returns the number of pending entries in any state.
func (l *Layer) Pending() int { return len(l.pending) }

// Size returns one past the highest object number known to the base table
// or handed out by Reserve.
func (l *Layer) Size() uint32 {
	return max(l.base.Size(), l.next)
}

// Mutator is the capability to change pending state.
type Mutator struct {
	l *Layer
}

// Change stores obj as the pending value of id. A reserved id becomes
// initialized. No type or existence checks are made.
func (m *Mutator) Change(id object.ID, obj object.Object) {
	m.l.pending[id] = &entry{state: Initialized, obj: obj}
}

// Reserve allocates an id never used by the base table nor returned by an
// earlier call, and marks it reserved.
func (m *Mutator) Reserve() (object.ID, error) {
	l := m.l
	id := object.ID{Num: l.Size()}
	if id.Num == 0 {
		id.Num = 1 // number 0 is never allocated
	}
	if _, ok := l.pending[id]; ok || l.base.Has(id) {
		return object.ID{}, fmt.Errorf("%w: %s", ErrDuplicateReservation, id)
	}
	l.pending[id] = &entry{state: Reserved}
	l.next = id.Num + 1
	return id, nil
}

// Delete tombstones id.
func (m *Mutator) Delete(id object.ID) {
	m.l.pending[id] = &entry{state: Deleted}
}

// Changes returns a snapshot of the pending entries that must be written,
// ordered by id. Reserved entries without a value are skipped.
func (m *Mutator) Changes() []xref.Change {
	out := make([]xref.Change, 0, len(m.l.pending))
	for _, id := range slices.SortedFunc(maps.Keys(m.l.pending), object.ID.Compare) {
		e := m.l.pending[id]
		switch e.state {
		case Initialized:
			out = append(out, xref.Change{ID: id, Object: e.obj})
		case Deleted:
			out = append(out, xref.Change{ID: id, Free: true})
		}
	}
	return out
}

// Reset clears the pending map and switches to base. The allocation
// counter is kept so ids handed out before the reset are never reused.
func (m *Mutator) Reset(base Base) {
	m.l.base = base
	m.l.pending = make(map[object.ID]*entry)
}

// TypeSafe reports whether replacing a with b keeps the document
// structurally sound. A null a accepts anything. References are compared
// by the kinds of the objects they resolve to; an unresolvable reference is
// never safe.
func (m *Mutator) TypeSafe(a, b object.Object) bool {
	if object.KindOf(a) == object.KindNull {
		return true
	}
	if !object.Valid(b) {
		return false
	}
	ka, ok := m.resolvedKind(a)
	if !ok {
		return false
	}
	if ka == object.KindNull {
		return true
	}
	kb, ok := m.resolvedKind(b)
	if !ok {
		return false
	}
	return ka == kb
}

func (m *Mutator) resolvedKind(o object.Object) (object.Kind, bool) {
	ref, ok := o.(object.Ref)
	if !ok {
		k := object.KindOf(o)
		return k, k != object.KindMalformed
	}
	target, err := m.l.Fetch(object.ID(ref))
	if err != nil {
		return 0, false
	}
	k := object.KindOf(target)
	return k, k != object.KindMalformed
}
