package tracker

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/devRAFAHT/bittorrent-client/internal/metainfo"
	"github.com/devRAFAHT/bittorrent-client/internal/shared/models"
)

const (
	udpProtocolID = 0x41727101980

	actionConnect  = 0
	actionAnnounce = 1
	actionError    = 3

	peersRequested = 100
)

var ErrUDPResponse = errors.New("invalid udp tracker response")

type UDPGetter struct {
	peerID models.PeerID
	port   uint16
}

func NewUDPGetter(peerID models.PeerID, port uint16) UDPGetter {
	return UDPGetter{peerID: peerID, port: port}
}

// GetPeers runs the BEP 15 connect and announce exchange. The context
// deadline, if any, bounds the whole exchange.
func (u UDPGetter) GetPeers(ctx context.Context, announce string, meta metainfo.Metainfo) ([]models.Peer, error) {
	tracker, err := url.Parse(announce)
	if err != nil {
		return nil, err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "udp", tracker.Host)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}

	connectionID, err := u.connect(conn)
	if err != nil {
		return nil, err
	}

	return u.announce(conn, connectionID, meta)
}

func (u UDPGetter) connect(conn net.Conn) (uint64, error) {
	transactionID, err := randomUint32()
	if err != nil {
		return 0, err
	}

	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:], udpProtocolID)  // connection_id
	binary.BigEndian.PutUint32(buf[8:], actionConnect)  // action
	binary.BigEndian.PutUint32(buf[12:], transactionID) // transaction_id

	if _, err = conn.Write(buf); err != nil {
		return 0, err
	}

	resp, err := readResponse(conn, 16, actionConnect, transactionID)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint64(resp[8:16]), nil
}

func (u UDPGetter) announce(conn net.Conn, connectionID uint64, meta metainfo.Metainfo) ([]models.Peer, error) {
	transactionID, err := randomUint32()
	if err != nil {
		return nil, err
	}
	key, err := randomUint32()
	if err != nil {
		return nil, err
	}

	infoHash := meta.InfoHash()
	buf := make([]byte, 98)
	binary.BigEndian.PutUint64(buf[0:8], connectionID)            // connection_id
	binary.BigEndian.PutUint32(buf[8:12], actionAnnounce)         // action
	binary.BigEndian.PutUint32(buf[12:16], transactionID)         // transaction_id
	copy(buf[16:36], infoHash[:])                                 // info_hash
	copy(buf[36:56], u.peerID[:])                                 // peer_id
	binary.BigEndian.PutUint64(buf[56:64], 0)                     // downloaded
	binary.BigEndian.PutUint64(buf[64:72], uint64(meta.Length())) // left
	binary.BigEndian.PutUint64(buf[72:80], 0)                     // uploaded
	binary.BigEndian.PutUint32(buf[80:84], 2)                     // event: started
	binary.BigEndian.PutUint32(buf[84:88], 0)                     // ip: sender address
	binary.BigEndian.PutUint32(buf[88:92], key)                   // key
	binary.BigEndian.PutUint32(buf[92:96], peersRequested)        // num_want
	binary.BigEndian.PutUint16(buf[96:98], u.port)                // port

	if _, err = conn.Write(buf); err != nil {
		return nil, err
	}

	resp, err := readResponse(conn, 20, actionAnnounce, transactionID)
	if err != nil {
		return nil, err
	}

	// interval, leechers and seeders occupy resp[8:20]
	return models.ParseCompactPeers(resp[20:])
}

// readResponse reads one datagram and checks its action and transaction id.
// A tracker error datagram is turned into an error carrying its message.
func readResponse(conn net.Conn, minSize int, action, transactionID uint32) ([]byte, error) {
	buf := make([]byte, 20+peersRequested*models.CompactAddrSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	resp := buf[:n]

	if len(resp) < 8 {
		return nil, fmt.Errorf("%w: %d bytes", ErrUDPResponse, len(resp))
	}
	if got := binary.BigEndian.Uint32(resp[4:8]); got != transactionID {
		return nil, fmt.Errorf("%w: transaction id %d, want %d", ErrUDPResponse, got, transactionID)
	}
	switch got := binary.BigEndian.Uint32(resp[0:4]); {
	case got == actionError:
		return nil, fmt.Errorf("%w: %s", ErrTrackerFailure, resp[8:])
	case got != action:
		return nil, fmt.Errorf("%w: action %d, want %d", ErrUDPResponse, got, action)
	}
	if len(resp) < minSize {
		return nil, fmt.Errorf("%w: %d bytes, want at least %d", ErrUDPResponse, len(resp), minSize)
	}

	return resp, nil
}

func randomUint32() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}
