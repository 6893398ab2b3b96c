package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType defines the compression algorithm used for the body.
type CompressionType uint8

const (
	// CompressionNone indicates no compression.
	CompressionNone CompressionType = 0
	// CompressionLZ4 indicates LZ4 block compression (fast).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD indicates ZSTD block compression (better ratio).
	CompressionZSTD CompressionType = 2
)

func (ct CompressionType) String() string {
	switch ct {
	case CompressionNone:
		return "None"
	case CompressionLZ4:
		return "LZ4"
	case CompressionZSTD:
		return "ZSTD"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(ct))
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Block format: [UncompressedSize uint32][CompressedSize uint32][Data...]
// CompressedSize == 0 means the block is stored uncompressed.
const blockHeaderSize = 8

// compressBlock compresses one block. Blocks that do not compress well
// (ratio > 0.9) are stored uncompressed behind the same header.
func compressBlock(data []byte, compressionType CompressionType) ([]byte, error) {
	var compressed []byte
	var err error

	switch compressionType {
	case CompressionLZ4:
		compressed, err = compressBlockLZ4(data)
	case CompressionZSTD:
		compressed, err = compressBlockZSTD(data)
	default:
		return nil, fmt.Errorf("unsupported compression type: %d", compressionType)
	}

	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		result := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(result[4:], 0)
		copy(result[blockHeaderSize:], data)
		return result, nil
	}

	result := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(result[4:], uint32(len(compressed)))
	copy(result[blockHeaderSize:], compressed)
	return result, nil
}

func compressBlockLZ4(data []byte) ([]byte, error) {
	maxCompressedSize := lz4.CompressBlockBound(len(data))
	compressed := make([]byte, maxCompressedSize)

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, nil // Incompressible
	}

	return compressed[:n], nil
}

func compressBlockZSTD(data []byte) ([]byte, error) {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil), nil
}

func decompressBlockData(compressedData []byte, uncompressedSize uint32, compressionType CompressionType) ([]byte, error) {
	result := make([]byte, uncompressedSize)

	switch compressionType {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(compressedData, result)
		if err != nil {
			return nil, err
		}
		if uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBody)
		}
		return result, nil

	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(compressedData, result[:0])
		if err != nil {
			return nil, err
		}
		if uint32(len(decoded)) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBody)
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("unsupported compression type: %d", compressionType)
	}
}

// blockWriter buffers body bytes and flushes them as compressed blocks.
// With CompressionNone it degrades to a plain pass-through.
type blockWriter struct {
	w               io.Writer
	compressionType CompressionType
	blockSize       int
	buffer          *bytes.Buffer
}

// defaultBlockSize is the uncompressed block size of the body stream.
const defaultBlockSize = 256 * 1024

func newBlockWriter(w io.Writer, compressionType CompressionType) *blockWriter {
	return &blockWriter{
		w:               w,
		compressionType: compressionType,
		blockSize:       defaultBlockSize,
		buffer:          bytes.NewBuffer(make([]byte, 0, defaultBlockSize)),
	}
}

// Write implements io.Writer, flushing full blocks as it goes.
func (c *blockWriter) Write(p []byte) (int, error) {
	if c.compressionType == CompressionNone {
		return c.w.Write(p)
	}

	total := 0
	for len(p) > 0 {
		space := c.blockSize - c.buffer.Len()
		if space <= 0 {
			if err := c.flushBlock(); err != nil {
				return total, err
			}
			space = c.blockSize
		}

		toWrite := len(p)
		if toWrite > space {
			toWrite = space
		}

		n, err := c.buffer.Write(p[:toWrite])
		if err != nil {
			return total, err
		}
		total += n
		p = p[n:]
	}
	return total, nil
}

func (c *blockWriter) flushBlock() error {
	if c.buffer.Len() == 0 {
		return nil
	}

	compressed, err := compressBlock(c.buffer.Bytes(), c.compressionType)
	if err != nil {
		return err
	}

	if _, err := c.w.Write(compressed); err != nil {
		return err
	}
	c.buffer.Reset()
	return nil
}

// Flush writes any remaining buffered data.
func (c *blockWriter) Flush() error {
	if c.compressionType == CompressionNone {
		return nil
	}
	return c.flushBlock()
}

// blockReader streams decompressed body bytes from a block-compressed
// reader. With CompressionNone it degrades to a plain pass-through.
type blockReader struct {
	r               io.Reader
	compressionType CompressionType
	current         []byte
}

func newBlockReader(r io.Reader, compressionType CompressionType) *blockReader {
	return &blockReader{
		r:               r,
		compressionType: compressionType,
	}
}

// Read implements io.Reader.
func (c *blockReader) Read(p []byte) (int, error) {
	if c.compressionType == CompressionNone {
		return c.r.Read(p)
	}

	for len(c.current) == 0 {
		if err := c.readBlock(); err != nil {
			return 0, err
		}
	}

	n := copy(p, c.current)
	c.current = c.current[n:]
	return n, nil
}

func (c *blockReader) readBlock() error {
	var header [blockHeaderSize]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return err
	}

	uncompressedSize := binary.LittleEndian.Uint32(header[0:])
	compressedSize := binary.LittleEndian.Uint32(header[4:])

	if compressedSize == 0 {
		block := make([]byte, uncompressedSize)
		if _, err := io.ReadFull(c.r, block); err != nil {
			return fmt.Errorf("%w: truncated block", ErrCorruptBody)
		}
		c.current = block
		return nil
	}

	compressed := make([]byte, compressedSize)
	if _, err := io.ReadFull(c.r, compressed); err != nil {
		return fmt.Errorf("%w: truncated block", ErrCorruptBody)
	}

	block, err := decompressBlockData(compressed, uncompressedSize, c.compressionType)
	if err != nil {
		return err
	}
	c.current = block
	return nil
}
