// Package minio stores bitmap blobs in any S3-compatible object store
// through the MinIO client (MinIO, Ceph, SeaweedFS, Garage).
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "bitmaps/")
//	err = roarguard.SaveBlob(ctx, store, "users/active", bm, codec.Portable)
//
// Uploads carry a Content-MD5 header so the server rejects torn writes. The
// frame checksum still guards every LoadBlob. Missing objects are reported
// as blobstore.ErrNotFound.
package minio
