package admin

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cloo-solutions/placesearch/internal/config"
	"github.com/cloo-solutions/placesearch/internal/repository"
	"github.com/cloo-solutions/placesearch/internal/service"
	"github.com/cloo-solutions/placesearch/internal/storage"
)

// openSeed opens a place seed from a local path or an s3://bucket/key URI.
func openSeed(ctx context.Context, cfg *config.Config, src string) (io.ReadCloser, error) {
	bucket, key, ok := storage.ParseObjectURI(src)
	if !ok {
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("failed to open seed file: %w", err)
		}
		return f, nil
	}

	s3Client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	body, err := s3Client.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seed %s: %w", src, err)
	}
	return body, nil
}

func newS3Client(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	if !cfg.HasS3() {
		return nil, fmt.Errorf("S3 is not configured: PLACESEARCH_S3_ENDPOINT, PLACESEARCH_S3_ACCESS_KEY_ID and PLACESEARCH_S3_SECRET_ACCESS_KEY are required")
	}
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return client, nil
}

func loadMemorySource(ctx context.Context, cfg *config.Config) (*repository.MemoryPlaceRepository, error) {
	if _, _, ok := storage.ParseObjectURI(cfg.SeedFile); !ok {
		return repository.LoadMemoryPlaceRepository(cfg.SeedFile)
	}

	body, err := openSeed(ctx, cfg, cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	places, err := service.DecodePlaces(body, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return repository.NewMemoryPlaceRepository(places...), nil
}
