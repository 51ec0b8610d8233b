// Object model for the document.
//
// Every value stored in a document is one of a closed set of kinds. The
// concrete Go types below are the only implementations of Object; Malformed
// exists for diagnostics and is rejected by every mutation path.
package object

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// Kind identifies the type of an object.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindName
	KindArray
	KindDict
	KindStream
	KindRef
	KindMalformed
)

var kindNames = [...]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindInt:       "int",
	KindReal:      "real",
	KindString:    "string",
	KindName:      "name",
	KindArray:     "array",
	KindDict:      "dict",
	KindStream:    "stream",
	KindRef:       "ref",
	KindMalformed: "malformed",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ID identifies one logical object: an object number and a generation.
type ID struct {
	Num uint32
	Gen uint16
}

func (id ID) String() string {
	return fmt.Sprintf("%d %d", id.Num, id.Gen)
}

// Compare orders ids by number, then generation.
func (id ID) Compare(o ID) int {
	switch {
	case id.Num < o.Num:
		return -1
	case id.Num > o.Num:
		return 1
	case id.Gen < o.Gen:
		return -1
	case id.Gen > o.Gen:
		return 1
	}
	return 0
}

// Object is a document value.
type Object interface {
	Kind() Kind
}

type (
	Null   struct{}
	Bool   bool
	Int    int64
	Real   float64
	String string
	Name   string
	Array  []Object
	Dict   map[Name]Object
	Ref    ID
)

// Stream is a dictionary followed by a byte payload.
type Stream struct {
	Dict Dict
	Data []byte
}

// Malformed holds a value that could not be decoded. It is only surfaced
// for diagnostics.
type Malformed struct {
	Raw []byte
	Err error
}

func (Null) Kind() Kind       { return KindNull }
func (Bool) Kind() Kind       { return KindBool }
func (Int) Kind() Kind        { return KindInt }
func (Real) Kind() Kind       { return KindReal }
func (String) Kind() Kind     { return KindString }
func (Name) Kind() Kind       { return KindName }
func (Array) Kind() Kind      { return KindArray }
func (Dict) Kind() Kind       { return KindDict }
func (*Stream) Kind() Kind    { return KindStream }
func (Ref) Kind() Kind        { return KindRef }
func (*Malformed) Kind() Kind { return KindMalformed }

// KindOf returns the kind of o, treating a nil interface as null.
func KindOf(o Object) Kind {
	if o == nil {
		return KindNull
	}
	return o.Kind()
}

// Valid reports whether o may be stored. Nil, Malformed values,
// non-finite reals and containers holding any of them are rejected.
func Valid(o Object) bool {
	switch v := o.(type) {
	case nil, *Malformed:
		return false
	case Real:
		return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
	case Array:
		for _, e := range v {
			if !Valid(e) {
				return false
			}
		}
	case Dict:
		for _, e := range v {
			if !Valid(e) {
				return false
			}
		}
	case *Stream:
		if v == nil {
			return false
		}
		for _, e := range v.Dict {
			if !Valid(e) {
				return false
			}
		}
	}
	return true
}

// Format renders o in a compact human-readable form. Dictionary keys are
// sorted so the output is stable.
func Format(o Object) string {
	var b strings.Builder
	format(&b, o)
	return b.String()
}

func format(b *strings.Builder, o Object) {
	switch v := o.(type) {
	case nil, Null:
		b.WriteString("null")
	case Bool:
		fmt.Fprintf(b, "%t", bool(v))
	case Int:
		fmt.Fprintf(b, "%d", int64(v))
	case Real:
		fmt.Fprintf(b, "%g", float64(v))
	case String:
		fmt.Fprintf(b, "%q", string(v))
	case Name:
		b.WriteString("/" + string(v))
	case Ref:
		fmt.Fprintf(b, "%d %d R", v.Num, v.Gen)
	case Array:
		b.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				b.WriteByte(' ')
			}
			format(b, e)
		}
		b.WriteByte(']')
	case Dict:
		formatDict(b, v)
	case *Stream:
		formatDict(b, v.Dict)
		fmt.Fprintf(b, " stream(%d)", len(v.Data))
	case *Malformed:
		fmt.Fprintf(b, "malformed(%v)", v.Err)
	}
}

func formatDict(b *strings.Builder, d Dict) {
	b.WriteString("<<")
	for _, k := range slices.Sorted(maps.Keys(d)) {
		b.WriteString(" /" + string(k) + " ")
		format(b, d[k])
	}
	b.WriteString(" >>")
}
