package tracker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/devRAFAHT/bittorrent-client/internal/metainfo"
	"github.com/devRAFAHT/bittorrent-client/internal/shared/models"
	"github.com/jackpal/bencode-go"
)

var (
	ErrTrackerStatus  = errors.New("tracker failed")
	ErrTrackerFailure = errors.New("tracker returned failure")
)

type HTTPGetter struct {
	client *http.Client
	peerID models.PeerID
	port   uint16
}

func NewHTTPGetter(client *http.Client, peerID models.PeerID, port uint16) *HTTPGetter {
	return &HTTPGetter{client: client, peerID: peerID, port: port}
}

// BuildAnnounceURL builds the HTTP announce request for a fresh download.
// info_hash and peer_id are raw bytes and are encoded with EncodeBytes, not
// url.Values, which would mangle them.
func BuildAnnounceURL(announce string, meta metainfo.Metainfo, peerID models.PeerID, port uint16) string {
	var sb strings.Builder
	sb.WriteString(announce)
	if strings.Contains(announce, "?") {
		sb.WriteString("&")
	} else {
		sb.WriteString("?")
	}
	infoHash := meta.InfoHash()
	sb.WriteString("info_hash=")
	sb.WriteString(EncodeBytes(infoHash[:]))
	sb.WriteString("&peer_id=")
	sb.WriteString(EncodeBytes(peerID[:]))
	sb.WriteString("&port=")
	sb.WriteString(strconv.Itoa(int(port)))
	sb.WriteString("&uploaded=0")
	sb.WriteString("&downloaded=0")
	sb.WriteString("&left=")
	sb.WriteString(strconv.FormatInt(meta.Length(), 10))
	sb.WriteString("&compact=1")
	return sb.String()
}

// Request performs the announce and returns the raw response body.
func (h *HTTPGetter) Request(ctx context.Context, announce string, meta metainfo.Metainfo) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, BuildAnnounceURL(announce, meta, h.peerID, h.port), nil)
	if err != nil {
		return nil, err
	}

	response, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w. HTTP status: %d", ErrTrackerStatus, response.StatusCode)
	}

	return io.ReadAll(response.Body)
}

func (h *HTTPGetter) GetPeers(ctx context.Context, announce string, meta metainfo.Metainfo) ([]models.Peer, error) {
	body, err := h.Request(ctx, announce, meta)
	if err != nil {
		return nil, err
	}

	peersResp, err := decodeHTTPResponse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	return peersResp.Peers, nil
}

type peersResponse struct {
	FailureReason string `bencode:"failure reason"`
	Interval      int    `bencode:"interval"`
	Peers         string `bencode:"peers"`
}

type peersWithAddresses struct {
	Peers    []models.Peer
	Interval int
}

func decodeHTTPResponse(response io.Reader) (peersWithAddresses, error) {
	resp := peersResponse{}
	err := bencode.Unmarshal(response, &resp)
	if err != nil {
		return peersWithAddresses{}, err
	}

	if resp.FailureReason != "" {
		return peersWithAddresses{}, fmt.Errorf("%w: %s", ErrTrackerFailure, resp.FailureReason)
	}

	peers, err := models.ParseCompactPeers([]byte(resp.Peers))
	if err != nil {
		return peersWithAddresses{}, err
	}

	return peersWithAddresses{Peers: peers, Interval: resp.Interval}, nil
}
