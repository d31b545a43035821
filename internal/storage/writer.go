package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"github.com/coffersTech/topicview/internal/engine"
	"github.com/coffersTech/topicview/internal/model"
)

// Export file layout:
//
//	magic [8] | codec [1] | block length u32 | block | footer
//	footer: row count u32 | min ts i64 | max ts i64 | blake2b-256(block) [32]
//
// The block is the compressed JSON lines of the raw projections.
var MagicHeader = []byte("TVEXPRT1")

const footerSize = 4 + 8 + 8 + blake2b.Size256

// Codec names the block compression.
type Codec byte

const (
	CodecZstd   Codec = 1
	CodecSnappy Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecZstd:
		return "zstd"
	case CodecSnappy:
		return "snappy"
	default:
		return fmt.Sprintf("codec(%d)", byte(c))
	}
}

// ParseCodec maps a configuration name to a Codec. Empty means zstd.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "zstd":
		return CodecZstd, nil
	case "snappy":
		return CodecSnappy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// ExportWriter encodes raw projections into export files.
type ExportWriter struct {
	encoder *zstd.Encoder
	codec   Codec
}

func NewExportWriter(codec Codec) (*ExportWriter, error) {
	if codec != CodecZstd && codec != CodecSnappy {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, codec)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &ExportWriter{encoder: enc, codec: codec}, nil
}

// Encode returns the export file for rows.
func (ew *ExportWriter) Encode(rows []engine.RawProjection) ([]byte, error) {
	var buf bytes.Buffer
	if err := ew.Write(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the export file for rows to filename.
func (ew *ExportWriter) WriteFile(filename string, rows []engine.RawProjection) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := ew.Write(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write streams the export file for rows to w.
func (ew *ExportWriter) Write(w io.Writer, rows []engine.RawProjection) error {
	// 1. Write Header
	if _, err := w.Write(MagicHeader); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(ew.codec)}); err != nil {
		return err
	}

	// 2. Serialize rows as JSON lines
	var lines bytes.Buffer
	enc := json.NewEncoder(&lines)
	enc.SetEscapeHTML(false)
	var minTs, maxTs int64
	seen := false
	for i, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encoding row %d: %w", i, err)
		}
		if row.Timestamp == model.InvalidTimestamp {
			continue
		}
		if !seen || row.Timestamp < minTs {
			minTs = row.Timestamp
		}
		if !seen || row.Timestamp > maxTs {
			maxTs = row.Timestamp
		}
		seen = true
	}

	// 3. Compress and Write Block
	block := ew.compress(lines.Bytes())
	if err := binary.Write(w, binary.LittleEndian, uint32(len(block))); err != nil {
		return err
	}
	if _, err := w.Write(block); err != nil {
		return err
	}

	// 4. Footer
	return writeFooter(w, uint32(len(rows)), minTs, maxTs, blake2b.Sum256(block))
}

func (ew *ExportWriter) compress(raw []byte) []byte {
	if ew.codec == CodecSnappy {
		return snappy.Encode(nil, raw)
	}
	return ew.encoder.EncodeAll(raw, make([]byte, 0, len(raw)))
}

func writeFooter(w io.Writer, rowCount uint32, minTs, maxTs int64, sum [blake2b.Size256]byte) error {
	if err := binary.Write(w, binary.LittleEndian, rowCount); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, minTs); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, maxTs); err != nil {
		return err
	}
	_, err := w.Write(sum[:])
	return err
}
