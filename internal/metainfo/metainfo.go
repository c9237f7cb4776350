package metainfo

import (
	"crypto/sha1"
	"errors"
	"fmt"

	"github.com/devRAFAHT/bittorrent-client/internal/bencode"
	"github.com/devRAFAHT/bittorrent-client/internal/shared/models"
)

var (
	ErrInvalidRoot       = errors.New("invalid torrent file: root is not a dictionary")
	ErrMissingAnnounce   = errors.New("missing 'announce'")
	ErrMissingInfoFields = errors.New("missing required metadata fields in 'info' dictionary")
	ErrInvalidPiecesSize = errors.New("invalid 'pieces' field size")
	ErrInvalidLength     = errors.New("invalid 'length' or 'piece length'")
)

// Metainfo is the validated summary of a single-file torrent. It is built
// only by Derive and never changes afterwards.
type Metainfo struct {
	announce     string
	announceList [][]string
	name         string
	length       int64
	pieceLength  int64
	pieceHashes  []models.Hash
	infoHash     models.Hash
}

// Derive validates a decoded metainfo document and extracts its summary. The
// info hash is the SHA-1 of the re-encoded 'info' value, so root must come
// from a decoder that preserves key order.
func Derive(root bencode.Element) (Metainfo, error) {
	rootDict, ok := root.(bencode.Dictionary)
	if !ok {
		return Metainfo{}, ErrInvalidRoot
	}

	announce, ok := rootDict.GetString("announce")
	if !ok {
		return Metainfo{}, ErrMissingAnnounce
	}

	infoElement, ok := rootDict.Get("info")
	if !ok {
		return Metainfo{}, fmt.Errorf("%w: no 'info' key", ErrMissingInfoFields)
	}
	infoHash := models.Hash(sha1.Sum(bencode.Encode(infoElement)))

	info, ok := infoElement.(bencode.Dictionary)
	if !ok {
		return Metainfo{}, fmt.Errorf("%w: 'info' is a %s", ErrMissingInfoFields, infoElement.Kind())
	}

	name, hasName := info.GetString("name")
	length, hasLength := info.GetInt("length")
	pieceLength, hasPieceLength := info.GetInt("piece length")
	pieces, hasPieces := info.GetString("pieces")
	if !hasName || !hasLength || !hasPieceLength || !hasPieces {
		return Metainfo{}, ErrMissingInfoFields
	}

	if length < 0 || pieceLength <= 0 {
		return Metainfo{}, fmt.Errorf("%w: length %d, piece length %d", ErrInvalidLength, length, pieceLength)
	}

	pieceHashes, err := splitPieces(pieces.String())
	if err != nil {
		return Metainfo{}, err
	}

	return Metainfo{
		announce:     announce.String(),
		announceList: announceList(rootDict),
		name:         name.String(),
		length:       length.Int64(),
		pieceLength:  pieceLength.Int64(),
		pieceHashes:  pieceHashes,
		infoHash:     infoHash,
	}, nil
}

func splitPieces(pieces string) ([]models.Hash, error) {
	if len(pieces)%models.HashSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidPiecesSize, len(pieces))
	}

	hashes := make([]models.Hash, len(pieces)/models.HashSize)
	for i := range hashes {
		copy(hashes[i][:], pieces[i*models.HashSize:])
	}

	return hashes, nil
}

// announceList reads the optional BEP 12 tracker tiers. Entries that are not
// strings and tiers left empty are skipped.
func announceList(root bencode.Dictionary) [][]string {
	tiers, ok := root.GetList("announce-list")
	if !ok {
		return nil
	}

	var result [][]string
	for _, t := range tiers.Elements() {
		tier, ok := t.(bencode.List)
		if !ok {
			continue
		}
		var urls []string
		for _, u := range tier.Elements() {
			if s, ok := u.(bencode.ByteString); ok {
				urls = append(urls, s.String())
			}
		}
		if len(urls) > 0 {
			result = append(result, urls)
		}
	}

	return result
}

func (m Metainfo) Announce() string { return m.announce }

// AnnounceList returns a copy of the tracker tiers, or nil when the torrent
// has none.
func (m Metainfo) AnnounceList() [][]string {
	if m.announceList == nil {
		return nil
	}
	out := make([][]string, len(m.announceList))
	for i, tier := range m.announceList {
		out[i] = append([]string(nil), tier...)
	}
	return out
}

// Trackers lists every distinct tracker URL, the primary announce first.
func (m Metainfo) Trackers() []string {
	seen := map[string]struct{}{m.announce: {}}
	trackers := []string{m.announce}
	for _, tier := range m.announceList {
		for _, u := range tier {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			trackers = append(trackers, u)
		}
	}
	return trackers
}

func (m Metainfo) Name() string { return m.name }

func (m Metainfo) Length() int64 { return m.length }

func (m Metainfo) PieceLength() int64 { return m.pieceLength }

// PieceHashes returns a copy of the piece table in piece-index order.
func (m Metainfo) PieceHashes() []models.Hash {
	return append([]models.Hash(nil), m.pieceHashes...)
}

func (m Metainfo) PieceCount() int { return len(m.pieceHashes) }

// PieceSize is the byte size of piece index; only the last piece may be
// shorter than PieceLength.
func (m Metainfo) PieceSize(index int) int64 {
	if index < 0 || index >= len(m.pieceHashes) {
		return 0
	}
	// past the end of the content; also keeps the product below from overflowing
	if int64(index) > m.length/m.pieceLength {
		return 0
	}
	left := m.length - int64(index)*m.pieceLength
	return max(0, min(left, m.pieceLength))
}

func (m Metainfo) InfoHash() models.Hash { return m.infoHash }

func (m Metainfo) HexInfoHash() string { return m.infoHash.String() }
