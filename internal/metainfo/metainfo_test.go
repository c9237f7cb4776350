package metainfo

import (
	"crypto/sha1"
	"strings"
	"testing"

	"github.com/devRAFAHT/bittorrent-client/internal/bencode"
	"github.com/devRAFAHT/bittorrent-client/internal/shared/models"
	"github.com/stretchr/testify/assert"
	zeebo "github.com/zeebo/bencode"
)

const (
	defaultAnnounce    = "http://tracker.com"
	defaultName        = "ubuntu.iso"
	defaultLength      = 1024
	defaultPieceLength = 512
)

// piecesBlob fills piece i with the byte 'a'+i.
func piecesBlob(n int) bencode.ByteString {
	blob := make([]byte, models.HashSize*n)
	for i := range blob {
		blob[i] = byte('a' + i/models.HashSize)
	}
	return bencode.NewByteString(blob)
}

func validInfo(pieces int) []bencode.Pair {
	return []bencode.Pair{
		{Key: "name", Value: bencode.NewString(defaultName)},
		{Key: "length", Value: bencode.Integer(defaultLength)},
		{Key: "piece length", Value: bencode.Integer(defaultPieceLength)},
		{Key: "pieces", Value: piecesBlob(pieces)},
	}
}

func rootWithInfo(info bencode.Element) bencode.Dictionary {
	return bencode.NewDictionary(
		bencode.Pair{Key: "announce", Value: bencode.NewString(defaultAnnounce)},
		bencode.Pair{Key: "info", Value: info},
	)
}

func TestDerive(t *testing.T) {
	var tests = []struct {
		name   string
		given  func() bencode.Element
		assert func(t *testing.T, actual Metainfo, err error)
	}{
		{
			name: "derive metainfo from valid structure",
			given: func() bencode.Element {
				return rootWithInfo(bencode.NewDictionary(validInfo(2)...))
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.Nil(t, err)
				assert.Equal(t, defaultAnnounce, actual.Announce())
				assert.Equal(t, defaultName, actual.Name())
				assert.Equal(t, int64(defaultLength), actual.Length())
				assert.Equal(t, int64(defaultPieceLength), actual.PieceLength())
				assert.Equal(t, 2, actual.PieceCount())

				info := bencode.NewDictionary(validInfo(2)...)
				expected := models.Hash(sha1.Sum(bencode.Encode(info)))
				assert.Equal(t, expected, actual.InfoHash())
				assert.Len(t, actual.HexInfoHash(), 40)
			},
		},
		{
			name: "split pieces in order",
			given: func() bencode.Element {
				return rootWithInfo(bencode.NewDictionary(validInfo(3)...))
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.Nil(t, err)
				hashes := actual.PieceHashes()
				assert.Len(t, hashes, 3)
				assert.Equal(t, byte('a'), hashes[0][0])
				assert.Equal(t, byte('a'), hashes[0][19])
				assert.Equal(t, byte('b'), hashes[1][0])
				assert.Equal(t, byte('c'), hashes[2][19])
			},
		},
		{
			name: "empty pieces blob",
			given: func() bencode.Element {
				return rootWithInfo(bencode.NewDictionary(validInfo(0)...))
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.Nil(t, err)
				assert.Equal(t, 0, actual.PieceCount())
			},
		},
		{
			name: "root is not a dictionary",
			given: func() bencode.Element {
				return bencode.Integer(123)
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.ErrorIs(t, err, ErrInvalidRoot)
			},
		},
		{
			name: "nil root",
			given: func() bencode.Element {
				return nil
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.ErrorIs(t, err, ErrInvalidRoot)
			},
		},
		{
			name: "missing announce",
			given: func() bencode.Element {
				return bencode.NewDictionary(
					bencode.Pair{Key: "info", Value: bencode.NewDictionary(validInfo(1)...)},
				)
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.ErrorIs(t, err, ErrMissingAnnounce)
				assert.Equal(t, "missing 'announce'", err.Error())
			},
		},
		{
			name: "announce is not a string",
			given: func() bencode.Element {
				return bencode.NewDictionary(
					bencode.Pair{Key: "announce", Value: bencode.Integer(1)},
					bencode.Pair{Key: "info", Value: bencode.NewDictionary(validInfo(1)...)},
				)
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.ErrorIs(t, err, ErrMissingAnnounce)
			},
		},
		{
			name: "missing info",
			given: func() bencode.Element {
				return bencode.NewDictionary(
					bencode.Pair{Key: "announce", Value: bencode.NewString(defaultAnnounce)},
				)
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.ErrorIs(t, err, ErrMissingInfoFields)
			},
		},
		{
			name: "info is not a dictionary",
			given: func() bencode.Element {
				return rootWithInfo(bencode.NewList())
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.ErrorIs(t, err, ErrMissingInfoFields)
			},
		},
		{
			name: "missing metadata inside info",
			given: func() bencode.Element {
				return rootWithInfo(bencode.NewDictionary(
					bencode.Pair{Key: "length", Value: bencode.Integer(1024)},
				))
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.ErrorIs(t, err, ErrMissingInfoFields)
				assert.Contains(t, err.Error(), "missing required metadata fields")
			},
		},
		{
			name: "info field with the wrong type",
			given: func() bencode.Element {
				pairs := append(validInfo(1), bencode.Pair{Key: "length", Value: bencode.NewString("1024")})
				return rootWithInfo(bencode.NewDictionary(pairs...))
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.ErrorIs(t, err, ErrMissingInfoFields)
			},
		},
		{
			name: "pieces not a multiple of 20",
			given: func() bencode.Element {
				pairs := append(validInfo(1), bencode.Pair{Key: "pieces", Value: bencode.NewByteString(make([]byte, 21))})
				return rootWithInfo(bencode.NewDictionary(pairs...))
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.ErrorIs(t, err, ErrInvalidPiecesSize)
			},
		},
		{
			name: "negative length",
			given: func() bencode.Element {
				pairs := append(validInfo(1), bencode.Pair{Key: "length", Value: bencode.Integer(-1)})
				return rootWithInfo(bencode.NewDictionary(pairs...))
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.ErrorIs(t, err, ErrInvalidLength)
			},
		},
		{
			name: "zero piece length",
			given: func() bencode.Element {
				pairs := append(validInfo(1), bencode.Pair{Key: "piece length", Value: bencode.Integer(0)})
				return rootWithInfo(bencode.NewDictionary(pairs...))
			},
			assert: func(t *testing.T, actual Metainfo, err error) {
				assert.ErrorIs(t, err, ErrInvalidLength)
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			actual, err := Derive(tt.given())
			tt.assert(t, actual, err)
		})
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	root := rootWithInfo(bencode.NewDictionary(validInfo(2)...))

	first, err := Derive(root)
	assert.Nil(t, err)
	second, err := Derive(root)
	assert.Nil(t, err)

	assert.Equal(t, first.InfoHash(), second.InfoHash())
}

func TestInfoHashDependsOnKeyOrder(t *testing.T) {
	pairs := validInfo(1)
	reversed := make([]bencode.Pair, len(pairs))
	for i, p := range pairs {
		reversed[len(pairs)-1-i] = p
	}

	a, err := Derive(rootWithInfo(bencode.NewDictionary(pairs...)))
	assert.Nil(t, err)
	b, err := Derive(rootWithInfo(bencode.NewDictionary(reversed...)))
	assert.Nil(t, err)

	assert.NotEqual(t, a.InfoHash(), b.InfoHash())
	assert.Equal(t, a.Name(), b.Name())
}

// The info hash must equal the SHA-1 of the info bytes exactly as they appear
// in the file. zeebo/bencode's RawMessage captures those bytes untouched.
func TestInfoHashMatchesRawInfoBytes(t *testing.T) {
	var b strings.Builder
	b.WriteString("d")
	b.WriteString("8:announce26:http://tracker.example.com")
	b.WriteString("13:announce-list")
	b.WriteString("ll26:http://tracker.example.com25:http://backup-tracker.comee")
	b.WriteString("10:created by15:MyTorrentClient")
	b.WriteString("4:info")
	b.WriteString("d")
	b.WriteString("6:lengthi90000e")
	b.WriteString("4:name")
	b.WriteString("14:Torrent_Folder")
	b.WriteString("12:piece lengthi32768e")
	b.WriteString("6:pieces60:0123456789abcdef01230000000000000000000000000000000000000000")
	b.WriteString("7:privatei1e")
	b.WriteString("e")
	b.WriteString("e")
	data := []byte(b.String())

	var raw struct {
		Info zeebo.RawMessage `bencode:"info"`
	}
	err := zeebo.DecodeBytes(data, &raw)
	assert.Nil(t, err)

	root, err := bencode.Decode(data)
	assert.Nil(t, err)
	actual, err := Derive(root)
	assert.Nil(t, err)

	assert.Equal(t, models.Hash(sha1.Sum(raw.Info)), actual.InfoHash())
	assert.Equal(t, "http://tracker.example.com", actual.Announce())
	assert.Equal(t, [][]string{{"http://tracker.example.com", "http://backup-tracker.com"}}, actual.AnnounceList())
	assert.Equal(t, []string{"http://tracker.example.com", "http://backup-tracker.com"}, actual.Trackers())
	assert.Equal(t, "Torrent_Folder", actual.Name())
	assert.Equal(t, int64(32768), actual.PieceLength())
	assert.Equal(t, int64(90000), actual.Length())
	assert.Equal(t, "0123456789abcdef0123", string(actual.PieceHashes()[0][:]))
	assert.Equal(t, "00000000000000000000", string(actual.PieceHashes()[1][:]))
	assert.Equal(t, "00000000000000000000", string(actual.PieceHashes()[2][:]))
}

func TestAnnounceListSkipsMalformedTiers(t *testing.T) {
	root := bencode.NewDictionary(
		bencode.Pair{Key: "announce", Value: bencode.NewString("udp://a")},
		bencode.Pair{Key: "announce-list", Value: bencode.NewList(
			bencode.NewString("not a tier"),
			bencode.NewList(bencode.Integer(1)),
			bencode.NewList(bencode.NewString("udp://b"), bencode.Integer(2), bencode.NewString("udp://a")),
		)},
		bencode.Pair{Key: "info", Value: bencode.NewDictionary(validInfo(1)...)},
	)

	actual, err := Derive(root)
	assert.Nil(t, err)
	assert.Equal(t, [][]string{{"udp://b", "udp://a"}}, actual.AnnounceList())
	assert.Equal(t, []string{"udp://a", "udp://b"}, actual.Trackers())
}

func TestPieceSize(t *testing.T) {
	pairs := append(validInfo(3), bencode.Pair{Key: "length", Value: bencode.Integer(1100)})
	actual, err := Derive(rootWithInfo(bencode.NewDictionary(pairs...)))
	assert.Nil(t, err)

	assert.Equal(t, int64(512), actual.PieceSize(0))
	assert.Equal(t, int64(512), actual.PieceSize(1))
	assert.Equal(t, int64(76), actual.PieceSize(2))
	assert.Equal(t, int64(0), actual.PieceSize(3))
	assert.Equal(t, int64(0), actual.PieceSize(-1))
}

func TestPieceSizeWithHugePieceLength(t *testing.T) {
	info := bencode.NewDictionary(
		bencode.Pair{Key: "name", Value: bencode.NewString(defaultName)},
		bencode.Pair{Key: "length", Value: bencode.Integer(100)},
		bencode.Pair{Key: "piece length", Value: bencode.Integer(1 << 62)},
		bencode.Pair{Key: "pieces", Value: piecesBlob(4)},
	)
	actual, err := Derive(rootWithInfo(info))
	assert.Nil(t, err)

	assert.Equal(t, int64(100), actual.PieceSize(0))
	for i := 1; i < 4; i++ {
		assert.Equal(t, int64(0), actual.PieceSize(i))
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	root := bencode.NewDictionary(
		bencode.Pair{Key: "announce", Value: bencode.NewString("udp://a")},
		bencode.Pair{Key: "announce-list", Value: bencode.NewList(bencode.NewList(bencode.NewString("udp://b")))},
		bencode.Pair{Key: "info", Value: bencode.NewDictionary(validInfo(1)...)},
	)
	actual, err := Derive(root)
	assert.Nil(t, err)

	hashes := actual.PieceHashes()
	hashes[0][0] = 'z'
	assert.Equal(t, byte('a'), actual.PieceHashes()[0][0])

	tiers := actual.AnnounceList()
	tiers[0][0] = "udp://evil"
	assert.Equal(t, "udp://b", actual.AnnounceList()[0][0])
}
