package bencode

import "errors"

var (
	ErrInvalidFormat          = errors.New("invalid bencode format")
	ErrMalformedInteger       = errors.New("malformed integer")
	ErrMalformedLength        = errors.New("malformed string length")
	ErrTruncatedInput         = errors.New("truncated input")
	ErrUnterminatedList       = errors.New("unterminated list")
	ErrUnterminatedDictionary = errors.New("unterminated dictionary")
	ErrNonStringKey           = errors.New("dictionary key is not a string")
)
