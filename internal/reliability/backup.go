// Package reliability ships snapshots of the sqlite data directory to an
// S3-compatible bucket (R2 in production).
package reliability

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Config holds the bucket credentials.
type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Service creates and uploads snapshots.
type Service struct {
	cfg     Config
	dataDir string
	log     zerolog.Logger

	client *s3.Client
}

// NewService creates the backup service.
func NewService(cfg Config, dataDir string, log zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		dataDir: dataDir,
		log:     log.With().Str("service", "backup").Logger(),
	}
}

// Backup archives the data directory and uploads it with a sha256 manifest.
// Returns the object key of the snapshot.
func (s *Service) Backup(ctx context.Context) (string, error) {
	tmp, err := os.CreateTemp("", "snapshot-*.tar.gz")
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	checksum, err := CreateSnapshot(s.dataDir, tmp)
	if err != nil {
		return "", err
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return "", err
	}

	client, err := s.s3Client(ctx)
	if err != nil {
		return "", err
	}
	uploader := manager.NewUploader(client)

	key := fmt.Sprintf("snapshots/%s.tar.gz", time.Now().UTC().Format("20060102T150405Z"))
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        tmp,
		ContentType: aws.String("application/gzip"),
	}); err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	manifest := fmt.Sprintf("%s  %s\n", checksum, key)
	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key + ".sha256"),
		Body:        strings.NewReader(manifest),
		ContentType: aws.String("text/plain"),
	}); err != nil {
		return "", fmt.Errorf("failed to upload manifest: %w", err)
	}

	s.log.Info().Str("key", key).Str("sha256", checksum).Msg("Snapshot uploaded")
	return key, nil
}

func (s *Service) s3Client(ctx context.Context) (*s3.Client, error) {
	if s.client != nil {
		return s.client, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKey, s.cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.cfg.Endpoint)
		o.UsePathStyle = true
	})
	return s.client, nil
}
