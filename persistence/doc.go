// Package persistence implements the snapshot container for bag-of-words
// catalogs: a 64-byte header, an optionally block-compressed body holding the
// vocabulary matrix and the documents in insertion order, and a trailing
// CRC32 checksum.
//
// The container is a flat key-value layout: one reserved vocabulary section,
// optional grid-sampling scalars, then one entry per document (key plus
// term-frequency vector). Documents are written and replayed in insertion
// order so a reloaded catalog reproduces the saved catalog's statistics and
// tie-breaking exactly.
package persistence
