package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"vtcbackup/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

//s3API is the slice of the S3 client the store needs. *s3.Client satisfies it
type s3API interface {
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

var _ s3API = (*s3.Client)(nil)

//S3Store implements ObjectStore on top of AWS S3 or an S3-compatible service
type S3Store struct {
	client s3API
}

//loads the shared AWS config. Credentials and named profile come from $HOME/.aws unless static keys are configured
func newAWSConfig(ctx context.Context, appConfig domain.Config) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(appConfig.Region()),
	}
	if appConfig.AwsProfile() != "" {
		opts = append(opts, config.WithSharedConfigProfile(appConfig.AwsProfile()))
	}
	if appConfig.AccessKeyID() != "" && appConfig.SecretAccessKey() != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(appConfig.AccessKeyID(), appConfig.SecretAccessKey(), "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("AWS config failed: %w", err)
	}
	return cfg, nil
}

//NewS3Store builds the store. A custom endpoint switches to path-style addressing, which MinIO and friends need
func NewS3Store(cfg aws.Config, endpoint string) *S3Store {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client}
}

//Initiate implements ObjectStore.Initiate
func (s *S3Store) Initiate(ctx context.Context, bucket, key, storageClass string) (string, error) {
	out, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:       aws.String(bucket),
		Key:          aws.String(key),
		StorageClass: s3types.StorageClass(storageClass),
	})
	if err != nil {
		return "", err
	}
	if aws.ToString(out.UploadId) == "" {
		return "", errors.New("store returned an empty upload id")
	}
	return aws.ToString(out.UploadId), nil
}

//UploadPart implements ObjectStore.UploadPart. The part carries its MD5 so S3 rejects it if it arrives corrupted
func (s *S3Store) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body []byte) (string, error) {
	out, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentMD5:    aws.String(hashPart(body)),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.ETag), nil
}

//Complete implements ObjectStore.Complete
func (s *S3Store) Complete(ctx context.Context, bucket, key, uploadID string, parts []domain.CompletedPart) error {
	completed := make([]s3types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, s3types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.Number),
		})
	}

	_, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &s3types.CompletedMultipartUpload{Parts: completed},
	})
	return err
}

//Abort implements ObjectStore.Abort
func (s *S3Store) Abort(ctx context.Context, bucket, key, uploadID string) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	return err
}

//pulls the AWS error code (eg AccessDenied, NoSuchBucket) out of an error chain for logging
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
