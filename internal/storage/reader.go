package storage

import (
	"bufio"
	"bytes"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/valyala/fastjson"
	"golang.org/x/crypto/blake2b"

	"github.com/coffersTech/topicview/internal/engine"
	"github.com/coffersTech/topicview/internal/pkg/payload"
)

var (
	ErrInvalidHeader    = errors.New("invalid export file header")
	ErrChecksumMismatch = errors.New("export block checksum mismatch")
	ErrUnknownCodec     = errors.New("unknown export codec")
)

// Export is a decoded export file.
type Export struct {
	Codec        Codec
	MinTimestamp int64
	MaxTimestamp int64
	Rows         []engine.RawProjection
}

type ExportReader struct {
	decoder *zstd.Decoder
	parser  fastjson.ParserPool
}

func NewExportReader() (*ExportReader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &ExportReader{decoder: dec}, nil
}

// ReadFile decodes the export file at filename.
func (er *ExportReader) ReadFile(filename string) (*Export, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return er.Decode(data)
}

// Decode validates and decodes an export file.
func (er *ExportReader) Decode(data []byte) (*Export, error) {
	// 1. Validate Header
	if len(data) < len(MagicHeader)+1+4+footerSize {
		return nil, fmt.Errorf("%w: file too small", ErrInvalidHeader)
	}
	if !bytes.Equal(data[:len(MagicHeader)], MagicHeader) {
		return nil, ErrInvalidHeader
	}
	codec := Codec(data[len(MagicHeader)])
	pos := len(MagicHeader) + 1

	size := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if pos+size+footerSize != len(data) {
		return nil, fmt.Errorf("%w: block length %d does not match file size", ErrInvalidHeader, size)
	}
	block := data[pos : pos+size]

	// 2. Footer
	footer := data[pos+size:]
	rowCount := binary.LittleEndian.Uint32(footer[0:4])
	exp := &Export{
		Codec:        codec,
		MinTimestamp: int64(binary.LittleEndian.Uint64(footer[4:12])),
		MaxTimestamp: int64(binary.LittleEndian.Uint64(footer[12:20])),
	}
	sum := blake2b.Sum256(block)
	if subtle.ConstantTimeCompare(sum[:], footer[20:]) != 1 {
		return nil, ErrChecksumMismatch
	}

	// 3. Decompress and parse rows
	raw, err := er.decompress(codec, block)
	if err != nil {
		return nil, err
	}
	rows, err := er.parseRows(raw)
	if err != nil {
		return nil, err
	}
	if uint32(len(rows)) != rowCount {
		return nil, fmt.Errorf("export holds %d rows, footer says %d", len(rows), rowCount)
	}
	exp.Rows = rows
	return exp, nil
}

func (er *ExportReader) decompress(codec Codec, block []byte) ([]byte, error) {
	switch codec {
	case CodecZstd:
		out, err := er.decoder.DecodeAll(block, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	case CodecSnappy:
		out, err := snappy.Decode(nil, block)
		if err != nil {
			return nil, fmt.Errorf("snappy: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, codec)
	}
}

func (er *ExportReader) parseRows(raw []byte) ([]engine.RawProjection, error) {
	p := er.parser.Get()
	defer er.parser.Put(p)

	var rows []engine.RawProjection
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), len(raw)+1)
	for n := 1; sc.Scan(); n++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		v, err := p.ParseBytes(sc.Bytes())
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		row, err := rawProjection(v)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		rows = append(rows, row)
	}
	return rows, sc.Err()
}

func rawProjection(v *fastjson.Value) (engine.RawProjection, error) {
	row := engine.RawProjection{
		Timestamp: v.GetInt64("Timestamp"),
		Offset:    v.GetInt64("Offset"),
		Type:      string(v.GetStringBytes("Type")),
		Key:       string(v.GetStringBytes("Key")),
		Topic:     string(v.GetStringBytes("Topic")),
		Partition: int32(v.GetInt("Partition")),
		Value:     payload.Null{},
	}
	if val := v.Get("Value"); val != nil {
		pv, err := payload.FromFastJSON(val)
		if err != nil {
			return row, err
		}
		row.Value = pv
	}
	return row, nil
}
