package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/devRAFAHT/bittorrent-client/internal/metainfo"
	"github.com/devRAFAHT/bittorrent-client/internal/shared/models"
)

var (
	ErrEmptyAnnounce       = errors.New("announce url is empty")
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
)

type Tracker interface {
	GetPeers(ctx context.Context, meta metainfo.Metainfo) ([]models.Peer, error)
	WithHTTPClient(client *http.Client) Tracker
}

type PeersGetter interface {
	GetPeers(ctx context.Context, announce string, meta metainfo.Metainfo) ([]models.Peer, error)
}

type tracker struct {
	AnnounceURL string
	PeerID      models.PeerID
	Port        uint16
	HTTPClient  PeersGetter
	UDPClient   PeersGetter
	log         *slog.Logger
}

func NewTracker(announceURL string, peerID models.PeerID, port uint16, logger *slog.Logger) Tracker {
	return &tracker{
		AnnounceURL: announceURL,
		PeerID:      peerID,
		Port:        port,
		HTTPClient:  NewHTTPGetter(&http.Client{Timeout: 30 * time.Second}, peerID, port),
		UDPClient:   NewUDPGetter(peerID, port),
		log:         logger,
	}
}

func (t *tracker) WithHTTPClient(client *http.Client) Tracker {
	t.HTTPClient = NewHTTPGetter(client, t.PeerID, t.Port)
	return t
}

func (t *tracker) GetPeers(ctx context.Context, meta metainfo.Metainfo) ([]models.Peer, error) {
	if t.AnnounceURL == "" {
		return nil, ErrEmptyAnnounce
	}
	switch {
	case strings.HasPrefix(t.AnnounceURL, "http"):
		return t.HTTPClient.GetPeers(ctx, t.AnnounceURL, meta)
	case strings.HasPrefix(t.AnnounceURL, "udp"):
		return t.UDPClient.GetPeers(ctx, t.AnnounceURL, meta)
	default:
		t.log.Error("unsupported protocol", slog.String("announce-url", t.AnnounceURL))
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, t.AnnounceURL)
	}
}
