package models

import (
	"encoding/binary"
	"errors"
	"net"
	"strconv"
)

// CompactAddrSize is the length of an IPv4 address plus port in a compact
// tracker response.
const CompactAddrSize = 6

type Addr struct {
	IP   net.IP
	Port uint16
}

func (a *Addr) String() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
}

var ErrInvalidAddr = errors.New("invalid address")

func (a *Addr) ReadFromBytes(b []byte) error {
	if len(b) != CompactAddrSize {
		return ErrInvalidAddr
	}

	a.IP = net.IPv4(b[0], b[1], b[2], b[3])
	a.Port = binary.BigEndian.Uint16(b[4:])

	return nil
}

// ParseCompactPeers splits a compact peer list into peers. The input length
// must be a multiple of CompactAddrSize.
func ParseCompactPeers(b []byte) ([]Peer, error) {
	if len(b)%CompactAddrSize != 0 {
		return nil, ErrInvalidAddr
	}

	peers := make([]Peer, 0, len(b)/CompactAddrSize)
	for i := 0; i < len(b); i += CompactAddrSize {
		var addr Addr
		if err := addr.ReadFromBytes(b[i : i+CompactAddrSize]); err != nil {
			return nil, err
		}
		peers = append(peers, Peer{Addr: addr})
	}

	return peers, nil
}
