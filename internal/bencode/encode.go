package bencode

import (
	"fmt"
	"io"
	"strconv"
)

// Encode returns the bencoding of e. Dictionary entries are written in their
// stored order.
func Encode(e Element) []byte {
	return Append(nil, e)
}

// Append appends the bencoding of e to dst and returns the extended buffer.
func Append(dst []byte, e Element) []byte {
	switch v := e.(type) {
	case ByteString:
		return appendString(dst, v.value)
	case Integer:
		dst = append(dst, 'i')
		dst = strconv.AppendInt(dst, int64(v), 10)
		return append(dst, 'e')
	case List:
		dst = append(dst, 'l')
		for _, item := range v.items {
			dst = Append(dst, item)
		}
		return append(dst, 'e')
	case Dictionary:
		dst = append(dst, 'd')
		for _, k := range v.keys {
			dst = appendString(dst, k)
			dst = Append(dst, v.values[k])
		}
		return append(dst, 'e')
	default:
		// Element is sealed; only a nil interface can get here.
		panic(fmt.Sprintf("bencode: cannot encode %T", e))
	}
}

func appendString(dst []byte, s string) []byte {
	dst = strconv.AppendInt(dst, int64(len(s)), 10)
	dst = append(dst, ':')
	return append(dst, s...)
}

type Encoder struct {
	w   io.Writer
	buf []byte
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the bencoding of e to the underlying writer. The only
// possible error is the writer's.
func (enc *Encoder) Encode(e Element) error {
	enc.buf = Append(enc.buf[:0], e)
	_, err := enc.w.Write(enc.buf)
	return err
}
