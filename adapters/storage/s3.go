package storage

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"dose-calculator/internal/errors"
)

const BackendS3 Backend = "s3"

// S3Config holds S3 report store settings. Credentials fall back to the
// default AWS chain when AccessKeyID is empty.
type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string // MinIO or another S3-compatible endpoint
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string

	// HTTPClient replaces the SDK transport, used by tests
	HTTPClient *http.Client
}

// S3Store keeps one JSON object per report under a key prefix
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3-backed report store
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.Config("s3 report backend requires a bucket")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "failed to load AWS configuration", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "reports"
	}
	return &S3Store{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

func (s *S3Store) key(id string) string {
	return path.Join(s.prefix, id+".json")
}

func (s *S3Store) Save(ctx context.Context, report *StoredReport) error {
	if err := prepare(report); err != nil {
		return err
	}
	data, err := json.Marshal(report)
	if err != nil {
		return errors.Internal("failed to marshal report", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(report.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Storage("failed to upload report", err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, id string) (*StoredReport, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFound("report", id)
	}
	return s.fetch(ctx, id, s.key(id))
}

func (s *S3Store) fetch(ctx context.Context, id, key string) (*StoredReport, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return nil, errors.NotFound("report", id)
	}
	if err != nil {
		return nil, errors.Storage("failed to download report", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Storage("failed to read report", err)
	}
	var report StoredReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Storage("failed to unmarshal report", err)
	}
	return &report, nil
}

// List downloads every report under the prefix; history sizes are small
func (s *S3Store) List(ctx context.Context, filter *ListFilter) ([]*StoredReport, error) {
	var results []*StoredReport
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Storage("failed to list reports", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			id := strings.TrimSuffix(path.Base(key), ".json")
			if _, err := uuid.Parse(id); err != nil {
				continue
			}
			report, err := s.fetch(ctx, id, key)
			if err != nil {
				continue
			}
			if filter.match(report) {
				results = append(results, report)
			}
		}
	}
	return filter.page(results), nil
}

func (s *S3Store) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.NotFound("report", id)
	}
	key := aws.String(s.key(id))

	// DeleteObject succeeds for missing keys
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: key})
	if isNotFound(err) {
		return errors.NotFound("report", id)
	}
	if err != nil {
		return errors.Storage("failed to stat report", err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: key}); err != nil {
		return errors.Storage("failed to delete report", err)
	}
	return nil
}

func (s *S3Store) Close() error {
	return nil
}

func isNotFound(err error) bool {
	var re interface{ HTTPStatusCode() int }
	return stderrors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

var _ ReportStore = (*S3Store)(nil)
