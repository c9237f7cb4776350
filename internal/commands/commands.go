package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/devRAFAHT/bittorrent-client/internal/bencode"
	"github.com/devRAFAHT/bittorrent-client/internal/metainfo"
	"github.com/devRAFAHT/bittorrent-client/internal/tracker"
	"github.com/schollz/progressbar/v3"
	"github.com/ztrue/tracerr"
)

// Decode prints a bencoded value as JSON. Dictionary keys keep their encoded
// order.
func Decode(w io.Writer, bencodedValue []byte, logger *slog.Logger) error {
	logger.Info("calling Decode command")
	decoded, err := bencode.Decode(bencodedValue)
	if err != nil {
		return err
	}

	jsonOutput, err := json.Marshal(toJSON(decoded))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(jsonOutput))
	return err
}

func loadMetainfo(file string, logger *slog.Logger) (metainfo.Metainfo, error) {
	f, err := os.Open(file)
	if err != nil {
		return metainfo.Metainfo{}, tracerr.Wrap(err)
	}
	defer f.Close()

	meta, err := metainfo.NewDecoder(logger).Decode(f)
	if err != nil {
		return metainfo.Metainfo{}, tracerr.Wrap(fmt.Errorf("%s: %w", file, err))
	}
	return meta, nil
}

func Info(w io.Writer, file string, logger *slog.Logger) error {
	logger.Info("calling Info command", slog.String("file", file))
	meta, err := loadMetainfo(file, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Tracker URL: %s\n", meta.Announce())
	for _, tier := range meta.AnnounceList() {
		fmt.Fprintf(w, "Tracker Tier: %v\n", tier)
	}
	fmt.Fprintf(w, "Name: %s\n", meta.Name())
	fmt.Fprintf(w, "Length: %d\n", meta.Length())
	fmt.Fprintf(w, "Info Hash: %s\n", meta.HexInfoHash())
	fmt.Fprintf(w, "Piece Length: %d\n", meta.PieceLength())
	fmt.Fprintln(w, "Piece Hashes:")
	for _, h := range meta.PieceHashes() {
		fmt.Fprintln(w, h.String())
	}
	return nil
}

type PeersOptions struct {
	Port     uint16
	Timeout  time.Duration
	Progress io.Writer
}

func Peers(ctx context.Context, w io.Writer, file string, opts PeersOptions, logger *slog.Logger) error {
	logger.Info("calling Peers command", slog.String("file", file))
	meta, err := loadMetainfo(file, logger)
	if err != nil {
		return err
	}

	peerID, err := tracker.GeneratePeerID()
	if err != nil {
		return tracerr.Wrap(err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	stop := spin(opts.Progress, "retrieving peers", logger)
	announcer := tracker.Announcer{PeerID: peerID, Port: opts.Port, Log: logger}
	peers, err := announcer.RetrievePeers(ctx, meta)
	stop()
	if err != nil {
		return err
	}

	for _, p := range peers {
		fmt.Fprintln(w, p.Addr.String())
	}
	return nil
}

// spin animates a spinner on out until the returned func is called. A nil
// out disables it. Render failures only affect the spinner and are logged at
// debug level.
func spin(out io.Writer, description string, logger *slog.Logger) func() {
	if out == nil {
		return func() {}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				if err := bar.Finish(); err != nil {
					logger.Debug("failed to finish spinner", slog.Any("error", err))
				}
				return
			case <-ticker.C:
				if err := bar.Add(1); err != nil {
					logger.Debug("failed to render spinner", slog.Any("error", err))
				}
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

type jsonPair struct {
	key   string
	value any
}

// orderedObject marshals as a JSON object with keys in slice order.
type orderedObject []jsonPair

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func toJSON(e bencode.Element) any {
	switch v := e.(type) {
	case bencode.ByteString:
		return v.String()
	case bencode.Integer:
		return v.Int64()
	case bencode.List:
		out := make([]any, 0, v.Len())
		for _, item := range v.Elements() {
			out = append(out, toJSON(item))
		}
		return out
	case bencode.Dictionary:
		out := make(orderedObject, 0, v.Len())
		v.Range(func(key string, value bencode.Element) bool {
			out = append(out, jsonPair{key: key, value: toJSON(value)})
			return true
		})
		return out
	default:
		return nil
	}
}
