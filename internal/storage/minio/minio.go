// minio — архив исходных изображений сканов на базе MinIO/S3.
// Ключ объекта: scans/<userID>/<scanID>.<ext>.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pribylovaa/snapfood/internal/config"
	"github.com/pribylovaa/snapfood/internal/storage"
)

// ErrEmptyImage — нечего сохранять.
var ErrEmptyImage = errors.New("empty image")

// ImagesStorage — адаптер MinIO для изображений сканов.
type ImagesStorage struct {
	client *mclient.Client
	bucket string
}

// New создаёт клиента MinIO. Схема в endpoint определяет Secure.
// Отсутствующий бакет создаётся.
func New(ctx context.Context, cfg config.S3Config) (*ImagesStorage, error) {
	const op = "storage.minio.New"

	endpoint := cfg.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, mclient.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("%s: make bucket %q: %w", op, cfg.Bucket, err)
		}
	}

	return &ImagesStorage{client: client, bucket: cfg.Bucket}, nil
}

// PutScanImage загружает изображение и возвращает ключ объекта.
func (s *ImagesStorage) PutScanImage(ctx context.Context, userID, scanID uuid.UUID, contentType string, data []byte) (string, error) {
	const op = "storage.minio.PutScanImage"

	if len(data) == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyImage)
	}

	key := ScanImageKey(userID, scanID, contentType)

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), mclient.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"user-id": userID.String(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return key, nil
}

// ScanImageKey строит ключ объекта для скана.
func ScanImageKey(userID, scanID uuid.UUID, contentType string) string {
	return path.Join("scans", userID.String(), scanID.String()+extension(contentType))
}

func extension(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}

var _ storage.ImageStorage = (*ImagesStorage)(nil)
