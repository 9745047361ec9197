package main

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"vtcbackup/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
)

const (
	integrationBucket = "vtc-backup-test"
	minioImage        = "minio/minio:RELEASE.2024-01-16T16-07-38Z"
	minioUsername     = "minioadmin"
	minioPassword     = "minioadmin"
)

//setupMinIO starts MinIO, points the AWS env at it and creates the test bucket
func setupMinIO(t *testing.T) (context.Context, *s3.Client) {
	ctx := context.Background()

	container, err := minio.Run(ctx, minioImage,
		minio.WithUsername(minioUsername),
		minio.WithPassword(minioPassword),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate MinIO container: %s", err)
		}
	})

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "http://" + endpoint
	}

	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_ENDPOINT_URL", endpoint)
	t.Setenv("AWS_ACCESS_KEY_ID", minioUsername)
	t.Setenv("AWS_SECRET_ACCESS_KEY", minioPassword)
	t.Setenv("VTCBACKUP_BUCKET", integrationBucket)

	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(endpoint),
		Region:       "us-east-1",
		Credentials: aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: minioUsername, SecretAccessKey: minioPassword}, nil
		}),
		UsePathStyle: true,
	})
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(integrationBucket)})
	require.NoError(t, err)

	return ctx, client
}

func TestIntegrationMultipartUploadToMinIO(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx, client := setupMinIO(t)

	dir := t.TempDir()
	data := writeRandomFile(t, dir, "2024-01-02.vtcbackup", 12*mib)
	appConfig := newTestConfig(t, dir, false)

	awsCfg, err := newAWSConfig(ctx, appConfig)
	require.NoError(t, err)
	store := NewS3Store(awsCfg, appConfig.Endpoint())

	u := newChunkedUploader(appConfig, store)
	//MinIO only knows STANDARD and REDUCED_REDUNDANCY
	u.storageClass = "STANDARD"

	session, err := u.Upload(ctx, backupFileFor(t, filepath.Join(dir, "2024-01-02.vtcbackup")))
	require.NoError(t, err)
	require.Len(t, session.Parts, 3)

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(integrationBucket),
		Key:    aws.String("2024-01-02.vtcbackup"),
	})
	require.NoError(t, err)
	defer out.Body.Close()

	stored, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestIntegrationFailedPartLeavesNoUpload(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx, client := setupMinIO(t)

	dir := t.TempDir()
	writeRandomFile(t, dir, "today.vtcbackup", 6*mib)
	appConfig := newTestConfig(t, dir, false)

	awsCfg, err := newAWSConfig(ctx, appConfig)
	require.NoError(t, err)

	store := &failingPartStore{ObjectStore: NewS3Store(awsCfg, appConfig.Endpoint()), failPart: 2}
	u := newChunkedUploader(appConfig, store)
	u.storageClass = "STANDARD"

	_, err = u.Upload(ctx, backupFileFor(t, filepath.Join(dir, "today.vtcbackup")))
	require.Error(t, err)
	assert.Equal(t, domain.PhaseTransfer, domain.FailedPhase(err))

	uploads, err := client.ListMultipartUploads(ctx, &s3.ListMultipartUploadsInput{Bucket: aws.String(integrationBucket)})
	require.NoError(t, err)
	assert.Empty(t, uploads.Uploads)
}

//failingPartStore passes through to a real store but rejects one part number
type failingPartStore struct {
	ObjectStore
	failPart int32
}

func (f *failingPartStore) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body []byte) (string, error) {
	if partNumber == f.failPart {
		return "", errRejected
	}
	return f.ObjectStore.UploadPart(ctx, bucket, key, uploadID, partNumber, body)
}
