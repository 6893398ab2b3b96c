package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bowgo/testutil"
)

func makeSnapshot(t *testing.T, words, dim, docs int) *Snapshot {
	t.Helper()

	rng := testutil.NewRNG(42)

	snap := &Snapshot{
		Words:      words,
		Dim:        dim,
		Vocabulary: make([]float32, words*dim),
	}
	for i := range snap.Vocabulary {
		snap.Vocabulary[i] = rng.Float32()
	}

	for i := range docs {
		tf := make([]float32, words)
		for w := range tf {
			tf[w] = float32(rng.Intn(5))
		}
		snap.Documents = append(snap.Documents, Document{
			Key: fmt.Sprintf("images/img-%03d.jpg", i),
			TF:  tf,
		})
	}

	return snap
}

func TestSnapshotRoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		compression CompressionType
	}{
		{name: "none", compression: CompressionNone},
		{name: "lz4", compression: CompressionLZ4},
		{name: "zstd", compression: CompressionZSTD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := makeSnapshot(t, 16, 8, 5)
			snap.HasGrid = true
			snap.GridRadius = 3.5
			snap.GridStep = 12

			var buf bytes.Buffer
			require.NoError(t, Write(&buf, snap, tt.compression))

			got, err := Read(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)

			assert.Equal(t, snap.Words, got.Words)
			assert.Equal(t, snap.Dim, got.Dim)
			assert.Equal(t, snap.Vocabulary, got.Vocabulary)
			assert.True(t, got.HasGrid)
			assert.Equal(t, snap.GridRadius, got.GridRadius)
			assert.Equal(t, snap.GridStep, got.GridStep)
			require.Len(t, got.Documents, len(snap.Documents))
			for i, doc := range snap.Documents {
				assert.Equal(t, doc.Key, got.Documents[i].Key)
				assert.Equal(t, doc.TF, got.Documents[i].TF)
			}
		})
	}
}

func TestSnapshotRoundTripNoGrid(t *testing.T) {
	snap := makeSnapshot(t, 4, 3, 2)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, snap, CompressionNone))

	got, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.False(t, got.HasGrid)
	assert.Zero(t, got.GridRadius)
	assert.Zero(t, got.GridStep)
}

func TestSnapshotEmptyCatalog(t *testing.T) {
	snap := makeSnapshot(t, 8, 4, 0)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, snap, CompressionZSTD))

	got, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Empty(t, got.Documents)
	assert.Equal(t, snap.Vocabulary, got.Vocabulary)
}

func TestSnapshotInvalidMagic(t *testing.T) {
	snap := makeSnapshot(t, 4, 2, 1)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, snap, CompressionNone))

	data := buf.Bytes()
	data[0] ^= 0xFF

	_, err := Read(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestSnapshotChecksumDetectsCorruption(t *testing.T) {
	snap := makeSnapshot(t, 8, 4, 3)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, snap, CompressionNone))

	// Flip a TF byte in the body, far from the header and the checksum.
	data := buf.Bytes()
	data[len(data)-16] ^= 0x01

	_, err := Read(bytes.NewReader(data))
	require.Error(t, err)
	assert.True(t, IsChecksumMismatch(err), "expected checksum mismatch, got %v", err)
}

func TestSnapshotRejectsCorruptHeaderCounts(t *testing.T) {
	snap := makeSnapshot(t, 4, 2, 1)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, snap, CompressionNone))

	readCorrupted := func(mutate func(data []byte)) error {
		data := append([]byte(nil), buf.Bytes()...)
		mutate(data)
		_, err := Read(bytes.NewReader(data))
		return err
	}

	t.Run("vocabulary shape", func(t *testing.T) {
		err := readCorrupted(func(data []byte) {
			binary.LittleEndian.PutUint32(data[12:], math.MaxUint32) // Words
			binary.LittleEndian.PutUint32(data[16:], math.MaxUint32) // Dim
		})
		assert.ErrorIs(t, err, ErrCorruptHeader)
	})

	t.Run("vocabulary product", func(t *testing.T) {
		// Each field within bounds, the product far past them.
		err := readCorrupted(func(data []byte) {
			binary.LittleEndian.PutUint32(data[12:], maxWords)
			binary.LittleEndian.PutUint32(data[16:], maxDim)
		})
		assert.ErrorIs(t, err, ErrCorruptHeader)
	})

	t.Run("document count", func(t *testing.T) {
		err := readCorrupted(func(data []byte) {
			binary.LittleEndian.PutUint64(data[20:], math.MaxUint64) // Documents
		})
		assert.ErrorIs(t, err, ErrCorruptHeader)
	})

	t.Run("document count within bounds but past body", func(t *testing.T) {
		err := readCorrupted(func(data []byte) {
			binary.LittleEndian.PutUint64(data[20:], 1_000_000)
		})
		assert.ErrorIs(t, err, ErrCorruptBody)
	})
}

func TestSnapshotTruncated(t *testing.T) {
	snap := makeSnapshot(t, 8, 4, 3)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, snap, CompressionLZ4))

	_, err := Read(bytes.NewReader(buf.Bytes()[:buf.Len()/2]))
	assert.Error(t, err)
}

func TestSnapshotWriteRejectsBadShapes(t *testing.T) {
	t.Run("vocabulary size", func(t *testing.T) {
		snap := &Snapshot{Words: 4, Dim: 2, Vocabulary: make([]float32, 7)}

		var buf bytes.Buffer
		assert.ErrorIs(t, Write(&buf, snap, CompressionNone), ErrCorruptBody)
	})

	t.Run("document width", func(t *testing.T) {
		snap := makeSnapshot(t, 4, 2, 1)
		snap.Documents[0].TF = snap.Documents[0].TF[:2]

		var buf bytes.Buffer
		assert.ErrorIs(t, Write(&buf, snap, CompressionNone), ErrCorruptBody)
	})
}

func TestSaveToFileLoadFromFile(t *testing.T) {
	snap := makeSnapshot(t, 16, 8, 4)

	path := filepath.Join(t.TempDir(), "catalog.bow")
	require.NoError(t, SaveToFile(path, snap, CompressionZSTD))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, snap.Vocabulary, got.Vocabulary)
	require.Len(t, got.Documents, 4)
	assert.Equal(t, snap.Documents[3].TF, got.Documents[3].TF)
}

func TestSaveToFileAtomicOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.bow")

	first := makeSnapshot(t, 4, 2, 1)
	require.NoError(t, SaveToFile(path, first, CompressionNone))

	second := makeSnapshot(t, 4, 2, 3)
	require.NoError(t, SaveToFile(path, second, CompressionNone))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Len(t, got.Documents, 3)

	// No temp files left behind.
	entries, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCompressionLargeBody(t *testing.T) {
	// Body larger than one block so the block writer has to split.
	snap := makeSnapshot(t, 512, 64, 40)

	for _, ct := range []CompressionType{CompressionLZ4, CompressionZSTD} {
		t.Run(ct.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, snap, ct))

			// Highly regular float data compresses below the raw size.
			raw := 64 + 4*len(snap.Vocabulary) + len(snap.Documents)*(4+len(snap.Documents[0].Key)+4*snap.Words)
			assert.Less(t, buf.Len(), raw)

			got, err := Read(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, snap.Vocabulary, got.Vocabulary)
			assert.Len(t, got.Documents, 40)
		})
	}
}
