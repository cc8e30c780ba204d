package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"github.com/cozy-creator/brandgen/internal/config"
)

type S3FileStorage struct {
	client *s3.Client
	cfg    *config.S3Config
}

func NewS3FileStorage(ctx context.Context, cfg *config.Config) (*S3FileStorage, error) {
	if cfg.S3 == nil {
		return nil, fmt.Errorf("s3 config is not set")
	}

	region := cfg.S3.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(
		ctx,
		awsConfig.WithRegion(region),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.EndpointUrl != "" {
			o.BaseEndpoint = &cfg.S3.EndpointUrl
		}
	})

	return &S3FileStorage{client: client, cfg: cfg.S3}, nil
}

func (s *S3FileStorage) key(file FileInfo) string {
	if file.IsTemp {
		return "temp/" + file.Filename()
	}
	folder := strings.Trim(s.cfg.Folder, "/")
	if folder == "" {
		return file.Filename()
	}
	return folder + "/" + file.Filename()
}

func (s *S3FileStorage) Upload(ctx context.Context, file FileInfo) (string, error) {
	if len(file.Content) == 0 {
		return "", ErrEmptyFile
	}

	key := s.key(file)
	mtype := mimetype.Detect(file.Content).String()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Key:         &key,
		ContentType: &mtype,
		Bucket:      &s.cfg.Bucket,
		Body:        bytes.NewReader(file.Content),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put %s: %w", key, err)
	}

	return s.publicURL(key)
}

// publicURL derives the object URL. Providers whose URL shape cannot be
// inferred (R2, MinIO) need s3.public_url.
func (s *S3FileStorage) publicURL(key string) (string, error) {
	if s.cfg.PublicUrl != "" {
		return strings.TrimSuffix(s.cfg.PublicUrl, "/") + "/" + key, nil
	}

	switch {
	case strings.Contains(s.cfg.EndpointUrl, "digitaloceanspaces.com"):
		return fmt.Sprintf("https://%s.%s.cdn.digitaloceanspaces.com/%s", s.cfg.Bucket, s.cfg.Region, key), nil
	case strings.Contains(s.cfg.EndpointUrl, "amazonaws.com"), s.cfg.EndpointUrl == "":
		endpoint := strings.TrimSuffix(strings.TrimPrefix(s.cfg.EndpointUrl, "https://"), "/")
		if endpoint == "" {
			endpoint = fmt.Sprintf("s3.%s.amazonaws.com", s.cfg.Region)
		}
		return fmt.Sprintf("https://%s.%s/%s", s.cfg.Bucket, endpoint, key), nil
	}

	return "", fmt.Errorf("cannot infer public url for endpoint %s; set s3.public_url", s.cfg.EndpointUrl)
}

func (s *S3FileStorage) GetFile(ctx context.Context, filename string) (*FileInfo, error) {
	object, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.cfg.Bucket,
		Key:    &filename,
	})
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filename)
	}
	if err != nil {
		return nil, err
	}
	defer object.Body.Close()

	content, err := io.ReadAll(object.Body)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	return &FileInfo{
		Name:      strings.TrimSuffix(base, ext),
		Extension: ext,
		Content:   content,
	}, nil
}
