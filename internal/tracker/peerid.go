package tracker

import (
	"crypto/rand"

	"github.com/devRAFAHT/bittorrent-client/internal/shared/models"
)

// PeerIDPrefix is the Azureus-style client tag at the start of every peer id.
const PeerIDPrefix = "-BC0001-"

func GeneratePeerID() (models.PeerID, error) {
	var id models.PeerID
	n := copy(id[:], PeerIDPrefix)
	if _, err := rand.Read(id[n:]); err != nil {
		return models.PeerID{}, err
	}
	return id, nil
}
