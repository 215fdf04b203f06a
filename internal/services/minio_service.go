package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"consultapp/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveService stores a JSON snapshot of tenant records before they are
// discarded by owner reconciliation.
type ArchiveService interface {
	ArchiveTenant(ctx context.Context, tenant *models.Tenant) (string, error)
	EnsureBucketExists(ctx context.Context) error
}

// ObjectStore is the part of *minio.Client the archive uses
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

type minioArchive struct {
	client ObjectStore
	bucket string
}

func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
}

func NewArchiveService(client ObjectStore, bucket string) ArchiveService {
	return &minioArchive{client: client, bucket: bucket}
}

func archiveObjectName(tenant *models.Tenant) string {
	return fmt.Sprintf("tenants/%s/%s-v%d.json", tenant.OwnerID, tenant.TenantID, tenant.Version)
}

func (m *minioArchive) ArchiveTenant(ctx context.Context, tenant *models.Tenant) (string, error) {
	data, err := json.Marshal(tenant)
	if err != nil {
		return "", fmt.Errorf("marshal tenant snapshot: %w", err)
	}
	name := archiveObjectName(tenant)
	_, err = m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return name, nil
}

func (m *minioArchive) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}
