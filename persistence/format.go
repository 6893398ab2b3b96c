package persistence

import "errors"

const (
	// MagicNumber identifies bowgo snapshot files (ASCII: "BOW1").
	MagicNumber = 0x424F5731
	// Version is the current container format version (v1.0.0).
	Version = 0x00010000

	// headerSize is the fixed size of the file header in bytes.
	headerSize = 64

	// flagGridParams marks a container carrying grid-sampling scalars.
	flagGridParams = 1 << 0
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrCorruptHeader  = errors.New("corrupt snapshot header")
	ErrCorruptBody    = errors.New("corrupt snapshot body")
)

// FileHeader is the 64-byte header at the start of every snapshot file.
// All multi-byte fields are little-endian.
type FileHeader struct {
	Magic       uint32 // 0x424F5731 ("BOW1")
	Version     uint32 // Container format version
	Compression uint8  // CompressionType of the body
	Flags       uint8  // flagGridParams etc.
	Padding     [2]byte
	Words       uint32 // Vocabulary size K
	Dim         uint32 // Descriptor dimensionality D
	Documents   uint64 // Number of stored documents
	Reserved    [36]byte
}
