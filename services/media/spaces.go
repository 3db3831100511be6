package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sahilchouksey/e-center-api/config"
)

// Kind is the role of an uploaded file, which decides its folder and
// accepted formats
type Kind string

const (
	KindVideo     Kind = "video"
	KindThumbnail Kind = "thumbnail"
	KindCover     Kind = "cover"
	KindAudio     Kind = "audio"
)

var (
	ErrNotConfigured     = errors.New("media storage is not configured")
	ErrUnknownKind       = errors.New("unknown media kind")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file is too large")
	ErrEmptyFile         = errors.New("file is empty")
)

type kindRule struct {
	prefix  string
	maxSize int64
	types   map[string]string
}

var (
	imageTypes = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
	}

	rules = map[Kind]kindRule{
		KindVideo: {prefix: "videos", maxSize: 500 << 20, types: map[string]string{
			".mp4":  "video/mp4",
			".webm": "video/webm",
			".mov":  "video/quicktime",
		}},
		KindThumbnail: {prefix: "thumbnails", maxSize: 5 << 20, types: imageTypes},
		KindCover:     {prefix: "covers", maxSize: 5 << 20, types: imageTypes},
		KindAudio: {prefix: "audio", maxSize: 20 << 20, types: map[string]string{
			".mp3": "audio/mpeg",
			".wav": "audio/wav",
			".ogg": "audio/ogg",
			".m4a": "audio/mp4",
		}},
	}
)

// SpacesConfig holds configuration for the Spaces client
type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
	CDNURL    string
	// PathStyle addresses objects as endpoint/bucket/key, used by local
	// S3-compatible servers
	PathStyle bool
}

// IsConfigured returns true if credentials and bucket are present
func (c SpacesConfig) IsConfigured() bool {
	return c.AccessKey != "" && c.SecretKey != "" && c.Bucket != "" && c.Region != ""
}

// ConfigFromEnv builds the Spaces configuration from the environment
func ConfigFromEnv(env *config.EnviornmentVariable) SpacesConfig {
	cfg := SpacesConfig{
		AccessKey: env.DO_SPACES_ACCESS_KEY,
		SecretKey: env.DO_SPACES_SECRET_KEY,
		Bucket:    env.DO_SPACES_BUCKET,
		Region:    env.DO_SPACES_REGION,
		Endpoint:  env.DO_SPACES_ENDPOINT,
		CDNURL:    strings.TrimRight(env.DO_SPACES_CDN_ENDPOINT, "/"),
	}
	// Default endpoint has no scheme so it can be used to build public URLs
	if cfg.Endpoint == "" && cfg.Region != "" {
		cfg.Endpoint = fmt.Sprintf("%s.digitaloceanspaces.com", cfg.Region)
	}
	return cfg
}

// Object describes a stored file
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// SpacesClient handles DigitalOcean Spaces operations
type SpacesClient struct {
	s3Client *s3.S3
	config   SpacesConfig
}

// NewSpacesClient creates a new Spaces client
func NewSpacesClient(cfg SpacesConfig) (*SpacesClient, error) {
	if !cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		),
		Endpoint:         aws.String(cfg.Endpoint),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.PathStyle),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return &SpacesClient{
		s3Client: s3.New(sess),
		config:   cfg,
	}, nil
}

// Validate checks that a file of the given name and size may be stored as
// kind, and returns its content type
func Validate(kind Kind, filename string, size int64) (string, error) {
	rule, ok := rules[kind]
	if !ok {
		return "", ErrUnknownKind
	}
	if size <= 0 {
		return "", ErrEmptyFile
	}
	if size > rule.maxSize {
		return "", fmt.Errorf("%w: limit is %d MB", ErrFileTooLarge, rule.maxSize>>20)
	}
	contentType, ok := rule.types[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", fmt.Errorf("%w for %s: %s", ErrUnsupportedFormat, kind, filepath.Ext(filename))
	}
	return contentType, nil
}

// ObjectKey generates a unique key for file storage under the kind's folder
func ObjectKey(kind Kind, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s/%s%s", rules[kind].prefix, time.Now().UTC().Format("2006/01"), uuid.NewString(), ext)
}

// Upload validates and stores data as kind, returning its public location
func (s *SpacesClient) Upload(ctx context.Context, kind Kind, filename string, data []byte) (*Object, error) {
	contentType, err := Validate(kind, filename, int64(len(data)))
	if err != nil {
		return nil, err
	}

	key := ObjectKey(kind, filename)
	_, err = s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ACL:         aws.String("public-read"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return &Object{
		Key:         key,
		URL:         s.FileURL(key),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// DeleteFile deletes a file from Spaces
func (s *SpacesClient) DeleteFile(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// FileExists checks if a file exists in Spaces
func (s *SpacesClient) FileExists(ctx context.Context, key string) (bool, error) {
	_, err := s.s3Client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("failed to check file: %w", err)
}

// FileURL returns the public URL for a file
func (s *SpacesClient) FileURL(key string) string {
	switch {
	case s.config.CDNURL != "":
		return fmt.Sprintf("%s/%s", s.config.CDNURL, key)
	case s.config.PathStyle:
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.config.Endpoint, "/"), s.config.Bucket, key)
	default:
		return fmt.Sprintf("https://%s.%s/%s", s.config.Bucket, s.config.Endpoint, key)
	}
}

// PresignedURL generates a presigned URL for temporary access
func (s *SpacesClient) PresignedURL(key string, expiration time.Duration) (string, error) {
	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to presign URL: %w", err)
	}
	return url, nil
}
