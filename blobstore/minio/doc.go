// Package minio provides a blobstore.BlobStore for MinIO and other
// S3-compatible object storage, using ranged reads for partial snapshot
// loads and streaming uploads for saves.
package minio
