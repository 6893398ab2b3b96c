// Package blobstore abstracts where catalog snapshots live: in memory, on
// the local file system, or in object storage (S3, MinIO). Decorators add
// block-level caching and byte-rate throttling on top of any store.
//
// Snapshots are immutable once written, so stores only need atomic
// whole-blob publication (Put or Create+Close), ranged reads, and listing.
package blobstore
