package agora

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind discriminates the shapes a Document leaf value can take.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// Value is a tagged union over the JSON value shapes a guild document
// can hold (string, int, float, bool, list, map). Values decoded from
// older or hand-edited files keep whatever shape they had, so a
// read-modify-write cycle never drops keys it doesn't understand.
//
// The zero Value has KindNull and marshals as JSON null.
type Value struct {
	kind ValueKind
	str  string
	num  int64
	flt  float64
	b    bool
	list []Value
	m    map[string]Value
}

func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

func IntValue(n int64) Value {
	return Value{kind: KindInt, num: n}
}

func FloatValue(f float64) Value {
	return Value{kind: KindFloat, flt: f}
}

func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

func ListValue(values ...Value) Value {
	list := make([]Value, len(values))
	copy(list, values)
	return Value{kind: KindList, list: list}
}

func StringListValue(values []string) Value {
	list := make([]Value, 0, len(values))
	for _, s := range values {
		list = append(list, StringValue(s))
	}
	return Value{kind: KindList, list: list}
}

func MapValue(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

func IntMapValue(m map[string]int64) Value {
	cp := make(map[string]Value, len(m))
	for k, n := range m {
		cp[k] = IntValue(n)
	}
	return Value{kind: KindMap, m: cp}
}

func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsString returns the string payload, reporting false for any other kind.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsInt returns an integer payload. Floats holding whole numbers convert
// cleanly: a value written as an int and read back after a JSON round
// trip through a float representation still compares equal.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.num, true
	case KindFloat:
		n := int64(v.flt)
		if float64(n) == v.flt {
			return n, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.flt, true
	case KindInt:
		return float64(v.num), true
	default:
		return 0, false
	}
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsStringSlice flattens a list value whose elements are all strings.
// Non-string elements are skipped rather than failing the whole read,
// since hand-edited files are expected.
func (v Value) AsStringSlice() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	out := make([]string, 0, len(v.list))
	for _, item := range v.list {
		if s, ok := item.AsString(); ok {
			out = append(out, s)
		}
	}
	return out, true
}

func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

// AsIntMap flattens a map value whose entries are numeric, skipping
// entries that aren't.
func (v Value) AsIntMap() (map[string]int64, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	out := make(map[string]int64, len(v.m))
	for k, item := range v.m {
		if n, ok := item.AsInt(); ok {
			out[k] = n
		}
	}
	return out, true
}

// Equal reports whether two values are equal by value. Int and float
// payloads holding the same whole number compare equal.
func (v Value) Equal(other Value) bool {
	if n, ok := v.AsInt(); ok {
		if m, okOther := other.AsInt(); okOther {
			return n == m
		}
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindFloat:
		return v.flt == other.flt
	case KindBool:
		return v.b == other.b
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, item := range v.m {
			otherItem, ok := other.m[k]
			if !ok || !item.Equal(otherItem) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) clone() Value {
	switch v.kind {
	case KindList:
		list := make([]Value, len(v.list))
		for i, item := range v.list {
			list[i] = item.clone()
		}
		return Value{kind: KindList, list: list}
	case KindMap:
		m := make(map[string]Value, len(v.m))
		for k, item := range v.m {
			m[k] = item.clone()
		}
		return Value{kind: KindMap, m: m}
	default:
		return v
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindInt:
		return json.Marshal(v.num)
	case KindFloat:
		return json.Marshal(v.flt)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.m)
	default:
		return nil, fmt.Errorf("cannot marshal %s", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Numbers without a
// fractional part decode as KindInt so whole numbers survive round
// trips without widening into floats.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	val, err := valueFromAny(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func valueFromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return IntValue(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return FloatValue(f), nil
	case []any:
		list := make([]Value, 0, len(t))
		for _, item := range t {
			val, err := valueFromAny(item)
			if err != nil {
				return Value{}, err
			}
			list = append(list, val)
		}
		return Value{kind: KindList, list: list}, nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			val, err := valueFromAny(item)
			if err != nil {
				return Value{}, err
			}
			m[k] = val
		}
		return Value{kind: KindMap, m: m}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// Document is one guild's persisted state: a map of feature namespaces,
// each holding its own flat key/value entries.
type Document map[string]map[string]Value

// Namespaces returns the namespace names in sorted order.
func (d Document) Namespaces() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d Document) clone() Document {
	cp := make(Document, len(d))
	for ns, entries := range d {
		nsCopy := make(map[string]Value, len(entries))
		for k, v := range entries {
			nsCopy[k] = v.clone()
		}
		cp[ns] = nsCopy
	}
	return cp
}

func decodeDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

func encodeDocument(doc Document, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}
