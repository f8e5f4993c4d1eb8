package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/querylabs/querybench/pkg/config"
	"github.com/sirupsen/logrus"
)

// s3Archiver implements Archiver for S3-compatible storage.
type s3Archiver struct {
	log    logrus.FieldLogger
	cfg    *config.S3ArchiveConfig
	client *s3.Client
}

// Ensure interface compliance.
var _ Archiver = (*s3Archiver)(nil)

// NewS3Archiver creates an archiver from the given configuration.
func NewS3Archiver(
	log logrus.FieldLogger,
	cfg *config.S3ArchiveConfig,
) (Archiver, error) {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.Region != "" {
				o.Region = cfg.Region
			} else {
				o.Region = "us-east-1"
			}

			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}

			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}

			if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretAccessKey, "",
				)
			}
		},
	}

	client := s3.New(s3.Options{}, opts...)

	return &s3Archiver{
		log:    log.WithField("component", "s3-archiver"),
		cfg:    cfg,
		client: client,
	}, nil
}

// Preflight verifies S3 connectivity by writing a small test object.
func (a *s3Archiver) Preflight(ctx context.Context) error {
	content := fmt.Sprintf("querybench write test: %s", time.Now().UTC().Format(time.RFC3339))

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(".querybench-write-test"),
		Body:        strings.NewReader(content),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("writing test object to s3://%s: %w", a.cfg.Bucket, err)
	}

	return nil
}

// ArchiveRun uploads one run summary document.
func (a *s3Archiver) ArchiveRun(ctx context.Context, benchRunID string, summary []byte) error {
	key := a.resolveKey(benchRunID)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(summary),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading run summary to s3://%s/%s: %w", a.cfg.Bucket, key, err)
	}

	a.log.WithFields(logrus.Fields{
		"bucket": a.cfg.Bucket,
		"key":    key,
	}).Info("Run summary archived")

	return nil
}

// resolveKey builds the object key for a run summary.
func (a *s3Archiver) resolveKey(benchRunID string) string {
	prefix := strings.TrimRight(a.cfg.Prefix, "/")
	if prefix == "" {
		prefix = "runs"
	}

	return prefix + "/" + benchRunID + "/summary.json"
}
