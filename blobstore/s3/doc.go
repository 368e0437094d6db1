// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("bitmaps/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = roarguard.SaveBlob(ctx, store, "users/active", bm, codec.Portable)
//
// # Features
//
//   - Single-request uploads with CRC32C checksums for small blobs
//   - Multipart uploads for large blobs
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
