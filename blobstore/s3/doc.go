// Package s3 provides an Amazon S3 backed blobstore.BlobStore for
// catalog snapshots, with ranged reads for partial loads, streaming
// multipart uploads for saves, and an optional DynamoDB-backed commit
// store for atomic CURRENT pointer updates across concurrent writers.
package s3
