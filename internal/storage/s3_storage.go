package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/whatthedob/whatthedob-backend/pkg/logger"
)

const archiveContentType = "text/html; charset=utf-8"

// objectPutter is the slice of the S3 API the archive uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage archives raw upstream menu pages.
type S3Storage struct {
	client  objectPutter
	bucket  string
	region  string
	baseURL string
}

func NewS3Storage(region, bucket, accessKeyID, secretAccessKey, baseURL string) *S3Storage {
	var cfg aws.Config
	var err error

	// If credentials are provided, use them. Otherwise, use default credential chain
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region: region,
			Credentials: credentials.NewStaticCredentialsProvider(
				accessKeyID,
				secretAccessKey,
				"",
			),
		}
	} else {
		// Use default credential chain (environment variables, ~/.aws/credentials, IAM role, etc.)
		cfg, err = config.LoadDefaultConfig(context.TODO(),
			config.WithRegion(region),
		)
		if err != nil {
			// If default config fails, create a basic config with region only
			cfg = aws.Config{
				Region: region,
			}
		}
	}

	return &S3Storage{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		region:  region,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// PageKey is the object key of one archived page:
// menus/<yyyy-mm-dd>/<campus>/<meal>.html
func PageKey(date time.Time, campusID uint, meal string) string {
	slug := strings.Trim(unsafeKeyChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(meal)), "-"), "-")
	if slug == "" {
		slug = "unknown"
	}
	return fmt.Sprintf("menus/%s/%d/%s.html", date.Format("2006-01-02"), campusID, slug)
}

// ArchivePage stores the raw page for one date, campus and meal and
// returns its object URL.
func (s *S3Storage) ArchivePage(ctx context.Context, date time.Time, campusID uint, meal, page string) (string, error) {
	key := PageKey(date, campusID, meal)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(page),
		ContentType: aws.String(archiveContentType),
	})
	if err != nil {
		logger.Error("Failed to archive menu page", err, map[string]interface{}{
			"bucket": s.bucket,
			"key":    key,
		})
		return "", fmt.Errorf("failed to archive %s: %w", key, err)
	}

	logger.Debug("Archived menu page", map[string]interface{}{
		"key":  key,
		"size": len(page),
	})
	return s.URL(key), nil
}

// URL returns the public URL of key.
func (s *S3Storage) URL(key string) string {
	if s.baseURL != "" {
		// Use CloudFront or custom domain
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
