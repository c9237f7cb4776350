package models

import "encoding/hex"

const HashSize = 20

// Hash is a SHA-1 digest: an info hash or one entry of a piece table.
type Hash [HashSize]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) Bytes() []byte {
	return h[:]
}

// PeerID identifies this client to trackers and peers.
type PeerID [HashSize]byte

func (p PeerID) String() string {
	return string(p[:])
}
