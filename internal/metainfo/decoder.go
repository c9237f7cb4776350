package metainfo

import (
	"io"
	"log/slog"

	"github.com/devRAFAHT/bittorrent-client/internal/bencode"
)

type MetafileDecoder interface {
	Decode(io.Reader) (Metainfo, error)
}

type decoder struct {
	log *slog.Logger
}

func NewDecoder(logger *slog.Logger) MetafileDecoder {
	return decoder{log: logger}
}

// Decode reads a whole .torrent body and derives its metainfo.
func (d decoder) Decode(torrent io.Reader) (Metainfo, error) {
	data, err := io.ReadAll(torrent)
	if err != nil {
		d.log.Error("failed to read torrent", slog.Any("error", err))
		return Metainfo{}, err
	}

	root, err := bencode.Decode(data)
	if err != nil {
		d.log.Error("failed to decode torrent", slog.Any("error", err))
		return Metainfo{}, err
	}

	meta, err := Derive(root)
	if err != nil {
		d.log.Error("invalid torrent metainfo", slog.Any("error", err))
		return Metainfo{}, err
	}

	d.log.Debug("decoded torrent",
		slog.String("name", meta.Name()),
		slog.String("info_hash", meta.HexInfoHash()),
		slog.Int("pieces", meta.PieceCount()))

	return meta, nil
}
