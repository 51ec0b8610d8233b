// Line codec for objects.
//
// An object is encoded as a single-key JSON object whose key names the kind,
// so integers and reals survive a round trip and the encoding never needs a
// schema. Containers nest the same form:
//
//	{"z":0}  {"b":true}  {"i":5}  {"r":1.5}  {"s":"text"}  {"n":"Type"}
//	{"S":"/w=="} (a string that is not UTF-8, base64)
//	{"a":[{"i":1},{"n":"X"}]}  {"d":{"Type":{"n":"Page"}}}
//	{"x":{"d":{...},"h":"<compressed payload>"}}  {"R":[12,0]}
//
// A stream with a nil payload omits "h"; an empty one carries "h":"".
// Dictionary keys that are not valid UTF-8, or that start with keyEscape,
// are written as keyEscape followed by the base64 of the key.
//
// The output contains no raw newlines, which keeps every object on one line
// of the host format.
package object

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

// ErrDecode is returned when an encoded object cannot be parsed.
var ErrDecode = errors.New("object: decode failed")

// Encoding keys, one per kind.
const (
	keyNull    = "z"
	keyBool    = "b"
	keyInt     = "i"
	keyReal    = "r"
	keyString  = "s"
	keyBytes   = "S" // string that is not valid UTF-8, base64
	keyName    = "n"
	keyRawName = "N" // name that is not valid UTF-8, base64
	keyArray   = "a"
	keyDict    = "d"
	keyStream  = "x"
	keyRef     = "R"
)

// keyEscape prefixes an encoded dictionary key.
const keyEscape = "\x00"

// Marshal encodes o. Malformed objects and non-finite reals are rejected.
func Marshal(o Object) ([]byte, error) {
	w, err := wire(o)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// Unmarshal decodes data produced by Marshal. A well-formed value with an
// unknown kind key decodes to *Malformed so the caller can report it.
func Unmarshal(data []byte) (Object, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if len(m) != 1 {
		return nil, fmt.Errorf("%w: %d keys in object", ErrDecode, len(m))
	}
	for k, raw := range m {
		return unwire(k, raw, data)
	}
	return nil, ErrDecode
}

type streamWire struct {
	Dict map[string]any `json:"d"`
	Data *string        `json:"h,omitempty"`
}

type streamRaw struct {
	Dict map[string]json.RawMessage `json:"d"`
	Data *string                    `json:"h"`
}

func wire(o Object) (any, error) {
	switch v := o.(type) {
	case Null:
		return map[string]any{keyNull: 0}, nil
	case Bool:
		return map[string]any{keyBool: bool(v)}, nil
	case Int:
		return map[string]any{keyInt: int64(v)}, nil
	case Real:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("object: non-finite real %v", f)
		}
		return map[string]any{keyReal: f}, nil
	case String:
		if !utf8.ValidString(string(v)) {
			return map[string]any{keyBytes: base64.StdEncoding.EncodeToString([]byte(v))}, nil
		}
		return map[string]any{keyString: string(v)}, nil
	case Name:
		if !utf8.ValidString(string(v)) {
			return map[string]any{keyRawName: base64.StdEncoding.EncodeToString([]byte(v))}, nil
		}
		return map[string]any{keyName: string(v)}, nil
	case Ref:
		return map[string]any{keyRef: [2]uint64{uint64(v.Num), uint64(v.Gen)}}, nil
	case Array:
		out := make([]any, len(v))
		for i, e := range v {
			w, err := wire(e)
			if err != nil {
				return nil, err
			}
			out[i] = w
		}
		return map[string]any{keyArray: out}, nil
	case Dict:
		d, err := wireDict(v)
		if err != nil {
			return nil, err
		}
		return map[string]any{keyDict: d}, nil
	case *Stream:
		if v == nil {
			return nil, errors.New("object: nil stream")
		}
		d, err := wireDict(v.Dict)
		if err != nil {
			return nil, err
		}
		sw := streamWire{Dict: d}
		if v.Data != nil {
			h, err := compress(v.Data)
			if err != nil {
				return nil, err
			}
			sw.Data = &h
		}
		return map[string]any{keyStream: sw}, nil
	default:
		return nil, fmt.Errorf("object: cannot encode %s", KindOf(o))
	}
}

func wireDict(d Dict) (map[string]any, error) {
	out := make(map[string]any, len(d))
	for k, e := range d {
		w, err := wire(e)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[wireKey(k)] = w
	}
	return out, nil
}

func wireKey(k Name) string {
	s := string(k)
	if utf8.ValidString(s) && !strings.HasPrefix(s, keyEscape) {
		return s
	}
	return keyEscape + base64.StdEncoding.EncodeToString([]byte(s))
}

func unwireKey(s string) (Name, error) {
	rest, ok := strings.CutPrefix(s, keyEscape)
	if !ok {
		return Name(s), nil
	}
	b, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return "", fmt.Errorf("%w: dict key: %w", ErrDecode, err)
	}
	return Name(b), nil
}

func unwire(key string, raw json.RawMessage, whole []byte) (Object, error) {
	switch key {
	case keyNull:
		return Null{}, nil
	case keyBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("%w: bool: %w", ErrDecode, err)
		}
		return Bool(b), nil
	case keyInt:
		var i int64
		if err := json.Unmarshal(raw, &i); err != nil {
			return nil, fmt.Errorf("%w: int: %w", ErrDecode, err)
		}
		return Int(i), nil
	case keyReal:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("%w: real: %w", ErrDecode, err)
		}
		return Real(f), nil
	case keyString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: string: %w", ErrDecode, err)
		}
		return String(s), nil
	case keyBytes, keyRawName:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: bytes: %w", ErrDecode, err)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: bytes: %w", ErrDecode, err)
		}
		if key == keyRawName {
			return Name(b), nil
		}
		return String(b), nil
	case keyName:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: name: %w", ErrDecode, err)
		}
		return Name(s), nil
	case keyRef:
		var p [2]uint64
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: ref: %w", ErrDecode, err)
		}
		if p[0] > math.MaxUint32 || p[1] > math.MaxUint16 {
			return nil, fmt.Errorf("%w: ref %d %d out of range", ErrDecode, p[0], p[1])
		}
		return Ref{Num: uint32(p[0]), Gen: uint16(p[1])}, nil
	case keyArray:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: array: %w", ErrDecode, err)
		}
		arr := make(Array, len(items))
		for i, item := range items {
			e, err := Unmarshal(item)
			if err != nil {
				return nil, err
			}
			arr[i] = e
		}
		return arr, nil
	case keyDict:
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: dict: %w", ErrDecode, err)
		}
		return unwireDict(m)
	case keyStream:
		var s streamRaw
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: stream: %w", ErrDecode, err)
		}
		d, err := unwireDict(s.Dict)
		if err != nil {
			return nil, err
		}
		st := &Stream{Dict: d}
		if s.Data != nil {
			if st.Data, err = decompress(*s.Data); err != nil {
				return nil, err
			}
		}
		return st, nil
	default:
		return &Malformed{Raw: whole, Err: fmt.Errorf("unknown kind key %q", key)}, nil
	}
}

func unwireDict(m map[string]json.RawMessage) (Dict, error) {
	d := make(Dict, len(m))
	for k, raw := range m {
		e, err := Unmarshal(raw)
		if err != nil {
			return nil, err
		}
		name, err := unwireKey(k)
		if err != nil {
			return nil, err
		}
		d[name] = e
	}
	return d, nil
}
