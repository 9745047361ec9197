package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"vtcbackup/domain"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//abort gets its own deadline so it still runs after the run context expired
const abortTimeout = 30 * time.Second

//ObjectStore is the remote side of a multipart upload
type ObjectStore interface {
	//Initiate starts a multipart upload and returns the session (upload) id
	Initiate(ctx context.Context, bucket, key, storageClass string) (string, error)

	//UploadPart sends one part and returns the tag the store assigned to it
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body []byte) (string, error)

	//Complete concatenates the parts in part-number order into the final object
	Complete(ctx context.Context, bucket, key, uploadID string, parts []domain.CompletedPart) error

	//Abort discards an unfinished upload and any parts already stored
	Abort(ctx context.Context, bucket, key, uploadID string) error
}

type chunkedUploader struct {
	store        ObjectStore
	bucket       string
	storageClass string
	partSize     int64
	dryrun       bool
	logger       *zap.SugaredLogger
}

func newChunkedUploader(appConfig domain.Config, store ObjectStore) *chunkedUploader {
	return &chunkedUploader{
		store:        store,
		bucket:       appConfig.Bucket(),
		storageClass: appConfig.StorageClass(),
		partSize:     appConfig.PartSize(),
		dryrun:       appConfig.Dryrun(),
		logger:       appConfig.Logger(),
	}
}

//Upload sends the file to the bucket under its base name: initiate, then one part per chunk in file order, then commit.
//Any failure after initiate aborts the session so no billable incomplete upload is left behind
func (u *chunkedUploader) Upload(ctx context.Context, bf *domain.BackupFile) (*domain.UploadSession, error) {
	defer u.logger.Sync()

	session := &domain.UploadSession{
		Bucket: u.bucket,
		Key:    bf.Name,
	}

	if bf.Size == 0 {
		return session, u.uploadError(session, domain.PhaseValidate, 0, fmt.Errorf("%w: %s", domain.ErrEmptyBackupFile, bf.Path))
	}

	plan := planParts(bf.Size, u.partSize)
	if u.dryrun {
		u.logger.Infow("dryrun: upload planned but not performed", "bucket", u.bucket, "key", bf.Name, "storageClass", u.storageClass,
			"size", bf.Size, "partSize", u.partSize, "parts", len(plan), "meta", domain.Chat)
		return session, nil
	}

	//open before initiating so an unreadable file never leaves a session behind
	f, err := os.Open(bf.Path)
	if err != nil {
		return session, u.uploadError(session, domain.PhaseValidate, 0, fmt.Errorf("failed to open file for upload: %w", err))
	}
	defer func() {
		if err := f.Close(); err != nil {
			u.logger.Warnw("failed to close file after upload", "path", bf.Path, "err", err, "meta", domain.Aws)
		}
	}()

	uploadID, err := u.store.Initiate(ctx, u.bucket, bf.Name, u.storageClass)
	if err != nil {
		return session, u.uploadError(session, domain.PhaseInitiate, 0, err)
	}
	session.UploadID = uploadID
	u.logger.Infow("multipart upload initiated", "bucket", u.bucket, "key", bf.Name, "uploadId", uploadID,
		"storageClass", u.storageClass, "parts", len(plan), "meta", domain.Aws)

	buf := make([]byte, u.partSize)
	for i, size := range plan {
		partNumber := int32(i + 1)

		chunk := buf[:size]
		if _, err := io.ReadFull(f, chunk); err != nil {
			return session, u.abort(session, u.uploadError(session, domain.PhaseTransfer, partNumber,
				fmt.Errorf("failed to read part from %s: %w", bf.Path, err)))
		}

		etag, err := u.store.UploadPart(ctx, u.bucket, bf.Name, uploadID, partNumber, chunk)
		if err != nil {
			return session, u.abort(session, u.uploadError(session, domain.PhaseTransfer, partNumber, err))
		}

		session.Parts = append(session.Parts, domain.CompletedPart{Number: partNumber, ETag: etag, Size: size})
		u.logger.Debugw("part uploaded", "key", bf.Name, "part", partNumber, "size", size, "etag", etag, "meta", domain.Aws)
	}

	if err := u.store.Complete(ctx, u.bucket, bf.Name, uploadID, session.Parts); err != nil {
		return session, u.abort(session, u.uploadError(session, domain.PhaseCommit, 0, err))
	}

	u.logger.Infow("multipart upload complete", "bucket", u.bucket, "key", bf.Name, "uploadId", uploadID, "meta", domain.Aws)
	return session, nil
}

func (u *chunkedUploader) uploadError(session *domain.UploadSession, phase domain.UploadPhase, partNumber int32, err error) error {
	ue := &domain.UploadError{
		Phase:      phase,
		Bucket:     session.Bucket,
		Key:        session.Key,
		UploadID:   session.UploadID,
		PartNumber: partNumber,
		Err:        err,
	}
	u.logger.Errorw("upload failed", "phase", phase, "part", partNumber, "awsCode", apiErrorCode(err), "err", err, "meta", domain.Err)
	return ue
}

//best-effort cleanup of the remote session. The upload error always stays first in the result
func (u *chunkedUploader) abort(session *domain.UploadSession, uploadErr error) error {
	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()

	if err := u.store.Abort(ctx, session.Bucket, session.Key, session.UploadID); err != nil {
		u.logger.Errorw("failed to abort multipart upload", "uploadId", session.UploadID, "awsCode", apiErrorCode(err), "err", err, "meta", domain.Err)
		return multierr.Append(uploadErr, fmt.Errorf("abort of upload %s failed: %w", session.UploadID, err))
	}

	u.logger.Infow("multipart upload aborted", "uploadId", session.UploadID, "meta", domain.Aws)
	return uploadErr
}

//sizes of each part for a file of the given size: every part is partSize except the last, which holds the remainder
func planParts(size, partSize int64) []int64 {
	if size <= 0 || partSize <= 0 {
		return nil
	}

	count := (size + partSize - 1) / partSize
	parts := make([]int64, count)
	for i := range parts {
		parts[i] = partSize
	}
	if rem := size % partSize; rem != 0 {
		parts[count-1] = rem
	}
	return parts
}
