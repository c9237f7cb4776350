package bencode

import "fmt"

type Kind uint8

const (
	KindByteString Kind = iota
	KindInteger
	KindList
	KindDictionary
)

func (k Kind) String() string {
	switch k {
	case KindByteString:
		return "byte string"
	case KindInteger:
		return "integer"
	case KindList:
		return "list"
	case KindDictionary:
		return "dictionary"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Element is a decoded bencode value. The set of implementations is closed:
// ByteString, Integer, List and Dictionary.
type Element interface {
	Kind() Kind
	sealed()
}

// ByteString is a binary-safe byte sequence.
type ByteString struct {
	value string
}

func NewByteString(b []byte) ByteString {
	return ByteString{value: string(b)}
}

func NewString(s string) ByteString {
	return ByteString{value: s}
}

func (ByteString) Kind() Kind { return KindByteString }
func (ByteString) sealed()    {}

// Bytes returns a copy of the raw bytes.
func (s ByteString) Bytes() []byte { return []byte(s.value) }

// String returns the bytes as a Go string. Go strings carry arbitrary bytes,
// so this view is lossless.
func (s ByteString) String() string { return s.value }

func (s ByteString) Len() int { return len(s.value) }

type Integer int64

func (Integer) Kind() Kind { return KindInteger }
func (Integer) sealed()    {}

func (i Integer) Int64() int64 { return int64(i) }

type List struct {
	items []Element
}

// NewList panics if any item is nil.
func NewList(items ...Element) List {
	for i, item := range items {
		if item == nil {
			panic(fmt.Sprintf("bencode: nil element at list index %d", i))
		}
	}
	return List{items: append([]Element(nil), items...)}
}

func (List) Kind() Kind { return KindList }
func (List) sealed()    {}

func (l List) Len() int { return len(l.items) }

func (l List) At(i int) Element { return l.items[i] }

// Elements returns a copy of the list items.
func (l List) Elements() []Element {
	return append([]Element(nil), l.items...)
}

// Pair is one dictionary entry.
type Pair struct {
	Key   string
	Value Element
}

// Dictionary keeps its keys in insertion order. Encoding reproduces that
// order; nothing is ever sorted.
type Dictionary struct {
	keys   []string
	values map[string]Element
}

// NewDictionary builds a dictionary from pairs in the given order. A repeated
// key keeps the position of its first occurrence and the value of its last.
// It panics if any value is nil.
func NewDictionary(pairs ...Pair) Dictionary {
	d := Dictionary{values: make(map[string]Element, len(pairs))}
	for _, p := range pairs {
		if p.Value == nil {
			panic(fmt.Sprintf("bencode: nil value for dictionary key %q", p.Key))
		}
		d.set(p.Key, p.Value)
	}
	return d
}

func (d *Dictionary) set(key string, value Element) {
	if d.values == nil {
		d.values = make(map[string]Element)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

func (Dictionary) Kind() Kind { return KindDictionary }
func (Dictionary) sealed()    {}

func (d Dictionary) Len() int { return len(d.keys) }

func (d Dictionary) Get(key string) (Element, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the keys in stored order.
func (d Dictionary) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Range calls fn for every entry in stored order until fn returns false.
func (d Dictionary) Range(fn func(key string, value Element) bool) {
	for _, k := range d.keys {
		if !fn(k, d.values[k]) {
			return
		}
	}
}

func (d Dictionary) GetString(key string) (ByteString, bool) {
	v, ok := d.values[key].(ByteString)
	return v, ok
}

func (d Dictionary) GetInt(key string) (Integer, bool) {
	v, ok := d.values[key].(Integer)
	return v, ok
}

func (d Dictionary) GetList(key string) (List, bool) {
	v, ok := d.values[key].(List)
	return v, ok
}

func (d Dictionary) GetDict(key string) (Dictionary, bool) {
	v, ok := d.values[key].(Dictionary)
	return v, ok
}
