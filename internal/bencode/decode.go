package bencode

import (
	"fmt"
	"strconv"
)

// Decoder reads consecutive bencode elements from an in-memory buffer. It
// never looks more than one byte ahead of the element being decoded.
//
// A Decoder is not safe for concurrent use; the buffer is only read.
type Decoder struct {
	data  []byte
	pos   int
	depth int
}

// MaxDepth is the deepest nesting of lists and dictionaries a Decoder
// accepts.
const MaxDepth = 1024

func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Offset is the index of the next unconsumed byte.
func (d *Decoder) Offset() int { return d.pos }

// More reports whether unconsumed bytes remain.
func (d *Decoder) More() bool { return d.pos < len(d.data) }

// Next decodes the next element. At end of input it returns a nil Element
// and a nil error. On error the cursor position is unspecified and no
// partial element is returned.
func (d *Decoder) Next() (Element, error) {
	if !d.More() {
		return nil, nil
	}
	return d.value()
}

// Decode decodes a buffer holding exactly one element. An empty buffer yields
// a nil Element and no error. Bytes left over after the element are rejected
// so that Encode always reproduces data exactly.
func Decode(data []byte) (Element, error) {
	d := NewDecoder(data)
	e, err := d.Next()
	if err != nil {
		return nil, err
	}
	if d.More() {
		return nil, fmt.Errorf("%w: trailing data at offset %d", ErrInvalidFormat, d.pos)
	}
	return e, nil
}

func (d *Decoder) peek() (byte, bool) {
	if d.pos >= len(d.data) {
		return 0, false
	}
	return d.data[d.pos], true
}

func (d *Decoder) value() (Element, error) {
	c, ok := d.peek()
	if !ok {
		return nil, fmt.Errorf("%w: unexpected end of input at offset %d", ErrInvalidFormat, d.pos)
	}

	switch {
	case c == 'i':
		return d.integer()
	case c == 'l':
		return d.list()
	case c == 'd':
		return d.dictionary()
	case isDigit(c):
		return d.byteString()
	default:
		return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrInvalidFormat, c, d.pos)
	}
}

func (d *Decoder) integer() (Element, error) {
	start := d.pos
	d.pos++ // 'i'

	bodyStart := d.pos
	for {
		c, ok := d.peek()
		if !ok {
			return nil, fmt.Errorf("%w: missing 'e' for integer at offset %d", ErrMalformedInteger, start)
		}
		d.pos++
		if c == 'e' {
			break
		}
	}

	body := d.data[bodyStart : d.pos-1]
	if !canonicalInteger(body) {
		return nil, fmt.Errorf("%w: %q at offset %d", ErrMalformedInteger, body, start)
	}

	n, err := strconv.ParseInt(string(body), 10, 64)
	if err != nil {
		// only a range error can get here
		return nil, fmt.Errorf("%w: %q at offset %d: %v", ErrMalformedInteger, body, start, err)
	}

	return Integer(n), nil
}

// canonicalInteger accepts an optional '-' followed by digits with no leading
// zero, and rejects "-0".
func canonicalInteger(body []byte) bool {
	digits := body
	if len(digits) > 0 && digits[0] == '-' {
		digits = digits[1:]
	}
	if len(digits) == 0 {
		return false
	}
	for _, c := range digits {
		if !isDigit(c) {
			return false
		}
	}
	if digits[0] == '0' {
		return len(body) == 1
	}
	return true
}

func (d *Decoder) byteString() (Element, error) {
	start := d.pos

	for {
		c, ok := d.peek()
		if !ok {
			return nil, fmt.Errorf("%w: missing ':' for string at offset %d", ErrMalformedLength, start)
		}
		if c == ':' {
			break
		}
		if !isDigit(c) {
			return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrMalformedLength, c, d.pos)
		}
		d.pos++
	}

	prefix := d.data[start:d.pos]
	d.pos++ // ':'

	if len(prefix) == 0 {
		return nil, fmt.Errorf("%w: empty length at offset %d", ErrMalformedLength, start)
	}
	if len(prefix) > 1 && prefix[0] == '0' {
		return nil, fmt.Errorf("%w: leading zero in %q at offset %d", ErrMalformedLength, prefix, start)
	}

	n, err := strconv.ParseUint(string(prefix), 10, 63)
	if err != nil {
		return nil, fmt.Errorf("%w: %q at offset %d: %v", ErrMalformedLength, prefix, start, err)
	}

	remaining := uint64(len(d.data) - d.pos)
	if n > remaining {
		return nil, fmt.Errorf("%w: string at offset %d declares %d bytes, %d available", ErrTruncatedInput, start, n, remaining)
	}

	end := d.pos + int(n)
	s := ByteString{value: string(d.data[d.pos:end])}
	d.pos = end

	return s, nil
}

// enter records one more level of nesting for the container at d.pos.
func (d *Decoder) enter() error {
	if d.depth >= MaxDepth {
		return fmt.Errorf("%w: nesting deeper than %d at offset %d", ErrInvalidFormat, MaxDepth, d.pos)
	}
	d.depth++
	return nil
}

func (d *Decoder) leave() { d.depth-- }

func (d *Decoder) list() (Element, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	start := d.pos
	d.pos++ // 'l'

	items := make([]Element, 0)
	for {
		c, ok := d.peek()
		if !ok {
			return nil, fmt.Errorf("%w: list at offset %d", ErrUnterminatedList, start)
		}
		if c == 'e' {
			d.pos++
			break
		}

		item, err := d.value()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return List{items: items}, nil
}

func (d *Decoder) dictionary() (Element, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	start := d.pos
	d.pos++ // 'd'

	dict := Dictionary{values: make(map[string]Element)}
	for {
		c, ok := d.peek()
		if !ok {
			return nil, fmt.Errorf("%w: dictionary at offset %d", ErrUnterminatedDictionary, start)
		}
		if c == 'e' {
			d.pos++
			break
		}

		keyOffset := d.pos
		key, err := d.value()
		if err != nil {
			return nil, err
		}
		k, ok := key.(ByteString)
		if !ok {
			return nil, fmt.Errorf("%w: found %s at offset %d", ErrNonStringKey, key.Kind(), keyOffset)
		}

		if _, ok := d.peek(); !ok {
			return nil, fmt.Errorf("%w: key %q at offset %d has no value", ErrUnterminatedDictionary, k.value, keyOffset)
		}
		value, err := d.value()
		if err != nil {
			return nil, err
		}

		// last write wins, first position kept
		dict.set(k.value, value)
	}

	return dict, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
