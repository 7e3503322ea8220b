package storage

import (
	"context"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore lists the digifeeds S3 bucket. Uploads into the bucket happen
// outside this system; we only ever read the input area.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

// ListBarcodesInInputPath returns the barcodes currently waiting in the
// input area. Entries are either <barcode>.zip objects or <barcode>/ folders
// depending on how the scanner uploaded them.
func (m *MinioStore) ListBarcodesInInputPath(ctx context.Context, inputPath string) ([]string, error) {
	prefix := strings.TrimSuffix(inputPath, "/") + "/"
	objectCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix: prefix,
	})

	seen := make(map[string]bool)
	barcodes := make([]string, 0)
	for object := range objectCh {
		if object.Err != nil {
			return nil, object.Err
		}
		name := strings.TrimPrefix(object.Key, prefix)
		if i := strings.IndexByte(name, '/'); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSuffix(name, ".zip")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		barcodes = append(barcodes, name)
	}
	return barcodes, nil
}
