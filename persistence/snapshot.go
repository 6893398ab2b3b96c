package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Size bounds checked before any allocation they drive. The checksum only
// verifies at the end of the stream, so a corrupt size field has to be
// caught up front or it sizes a make call.
const (
	maxKeyLen = 64 * 1024

	maxWords            = 1 << 24
	maxDim              = 1 << 16
	maxVocabularyValues = 1 << 28 // Words×Dim, 1 GiB of float32
	maxDocuments        = 1 << 31
)

// Document is one catalog entry: a key and its term-frequency vector.
type Document struct {
	Key string
	TF  []float32
}

// Snapshot is the in-memory form of a persisted catalog: the vocabulary
// matrix, optional grid-sampling scalars, and every document in insertion
// order.
type Snapshot struct {
	Words      int
	Dim        int
	Vocabulary []float32 // flattened row-major Words×Dim
	HasGrid    bool
	GridRadius float64
	GridStep   float64
	Documents  []Document
}

// Write serializes the snapshot: header, body (through the compression
// codec), trailing CRC32 over header and body as written.
func Write(w io.Writer, snap *Snapshot, compression CompressionType) error {
	if len(snap.Vocabulary) != snap.Words*snap.Dim {
		return fmt.Errorf("%w: vocabulary is %d values, want %d×%d", ErrCorruptBody, len(snap.Vocabulary), snap.Words, snap.Dim)
	}

	cw := NewChecksumWriter(w)

	header := FileHeader{
		Magic:       MagicNumber,
		Version:     Version,
		Compression: uint8(compression),
		Words:       uint32(snap.Words),
		Dim:         uint32(snap.Dim),
		Documents:   uint64(len(snap.Documents)),
	}
	if snap.HasGrid {
		header.Flags |= flagGridParams
	}

	if err := binary.Write(cw, binary.LittleEndian, &header); err != nil {
		return err
	}

	body := newBlockWriter(cw, compression)

	if err := writeFloat32Slice(body, snap.Vocabulary); err != nil {
		return err
	}

	if snap.HasGrid {
		if err := writeFloat64(body, snap.GridRadius); err != nil {
			return err
		}
		if err := writeFloat64(body, snap.GridStep); err != nil {
			return err
		}
	}

	for _, doc := range snap.Documents {
		if len(doc.TF) != snap.Words {
			return fmt.Errorf("%w: document %q has %d words, want %d", ErrCorruptBody, doc.Key, len(doc.TF), snap.Words)
		}
		if len(doc.Key) > maxKeyLen {
			return fmt.Errorf("%w: document key exceeds %d bytes", ErrCorruptBody, maxKeyLen)
		}

		if err := binary.Write(body, binary.LittleEndian, uint32(len(doc.Key))); err != nil {
			return err
		}
		if _, err := io.WriteString(body, doc.Key); err != nil {
			return err
		}
		if err := writeFloat32Slice(body, doc.TF); err != nil {
			return err
		}
	}

	if err := body.Flush(); err != nil {
		return err
	}

	// The checksum itself is written raw, outside its own coverage.
	return binary.Write(w, binary.LittleEndian, cw.Sum())
}

// Read deserializes a snapshot, verifying the header and the trailing
// checksum. The reader must be positioned at the start of the container.
func Read(r io.Reader) (*Snapshot, error) {
	cr := NewChecksumReader(bufio.NewReaderSize(r, 256*1024))

	var header FileHeader
	if err := binary.Read(cr, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, header.Version)
	}
	if header.Words > maxWords || header.Dim > maxDim ||
		uint64(header.Words)*uint64(header.Dim) > maxVocabularyValues {
		return nil, fmt.Errorf("%w: vocabulary %d×%d out of range", ErrCorruptHeader, header.Words, header.Dim)
	}
	if header.Documents > maxDocuments {
		return nil, fmt.Errorf("%w: document count %d out of range", ErrCorruptHeader, header.Documents)
	}

	snap := &Snapshot{
		Words:   int(header.Words),
		Dim:     int(header.Dim),
		HasGrid: header.Flags&flagGridParams != 0,
	}

	body := newBlockReader(cr, CompressionType(header.Compression))

	var err error
	if snap.Vocabulary, err = readFloat32Slice(body, snap.Words*snap.Dim); err != nil {
		return nil, err
	}

	if snap.HasGrid {
		if snap.GridRadius, err = readFloat64(body); err != nil {
			return nil, err
		}
		if snap.GridStep, err = readFloat64(body); err != nil {
			return nil, err
		}
	}

	// Preallocation is clamped; past the clamp, append growth is cheaper
	// than trusting the count with gigabytes of capacity.
	prealloc := header.Documents
	if prealloc > 4096 {
		prealloc = 4096
	}
	snap.Documents = make([]Document, 0, prealloc)
	for range header.Documents {
		var keyLen uint32
		if err := binary.Read(body, binary.LittleEndian, &keyLen); err != nil {
			return nil, fmt.Errorf("%w: truncated document", ErrCorruptBody)
		}
		if keyLen > maxKeyLen {
			return nil, fmt.Errorf("%w: document key exceeds %d bytes", ErrCorruptBody, maxKeyLen)
		}

		key := make([]byte, keyLen)
		if _, err := io.ReadFull(body, key); err != nil {
			return nil, fmt.Errorf("%w: truncated document key", ErrCorruptBody)
		}

		tf, err := readFloat32Slice(body, snap.Words)
		if err != nil {
			return nil, err
		}

		snap.Documents = append(snap.Documents, Document{Key: string(key), TF: tf})
	}

	var expected uint32
	if err := binary.Read(cr.r, binary.LittleEndian, &expected); err != nil {
		return nil, fmt.Errorf("%w: missing checksum", ErrCorruptBody)
	}
	if err := cr.Verify(expected); err != nil {
		return nil, err
	}

	return snap, nil
}

func writeFloat32Slice(w io.Writer, vec []float32) error {
	buf := make([]byte, 0, 4*4096)
	for _, v := range vec {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		if len(buf) == cap(buf) {
			if _, err := w.Write(buf); err != nil {
				return err
			}
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func readFloat32Slice(r io.Reader, count int) ([]float32, error) {
	raw := make([]byte, 4*count)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: truncated float section", ErrCorruptBody)
	}

	vec := make([]float32, count)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vec, nil
}

func writeFloat64(w io.Writer, v float64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	_, err := w.Write(buf[:])
	return err
}

func readFloat64(r io.Reader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: truncated scalar", ErrCorruptBody)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}
