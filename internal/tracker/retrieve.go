package tracker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/devRAFAHT/bittorrent-client/internal/metainfo"
	"github.com/devRAFAHT/bittorrent-client/internal/shared/models"
)

var ErrNoPeers = errors.New("no peers found")

// Announcer asks every tracker of a torrent for peers.
type Announcer struct {
	PeerID models.PeerID
	Port   uint16
	// HTTPClient overrides the default client for http trackers when set.
	HTTPClient *http.Client
	Log        *slog.Logger
}

// RetrievePeers announces to all trackers concurrently and merges the
// results, dropping duplicate and unspecified addresses. Failing trackers are
// logged and skipped; ErrNoPeers is returned only when nothing was found.
func (a Announcer) RetrievePeers(ctx context.Context, meta metainfo.Metainfo) ([]models.Peer, error) {
	var (
		mutex sync.Mutex
		wg    sync.WaitGroup
		peers = make([]models.Peer, 0)
		seen  = make(map[string]struct{})
	)

	for _, announce := range meta.Trackers() {
		announce := announce
		wg.Add(1)

		go func() {
			defer wg.Done()
			a.Log.Info("retrieving peers from tracker", slog.String("announce", announce))

			t := NewTracker(announce, a.PeerID, a.Port, a.Log)
			if a.HTTPClient != nil {
				t = t.WithHTTPClient(a.HTTPClient)
			}
			p, err := t.GetPeers(ctx, meta)
			if err != nil {
				a.Log.Warn("failed to get peers", slog.String("announce", announce), slog.Any("error", err))
				return
			}

			mutex.Lock()
			defer mutex.Unlock()
			for _, peer := range p {
				if peer.Addr.IP.IsUnspecified() {
					continue
				}
				addr := peer.Addr.String()
				if _, ok := seen[addr]; ok {
					continue
				}
				seen[addr] = struct{}{}
				peers = append(peers, peer)
			}
		}()
	}
	wg.Wait()

	if len(peers) == 0 {
		return nil, ErrNoPeers
	}

	a.Log.Info("retrieved peers", slog.Int("peers", len(peers)))
	return peers, nil
}
