package domain

import (
	"errors"
	"fmt"
)

var (
	//ErrNoBackupFoundToday is returned when no backup file in the directory was created today
	ErrNoBackupFoundToday = errors.New("no backup found for today")

	//ErrUploadPhaseFailure matches every UploadError regardless of the phase that failed
	ErrUploadPhaseFailure = errors.New("upload failed")

	//ErrEmptyBackupFile is returned for a zero-byte backup file. Nothing is sent to the store
	ErrEmptyBackupFile = errors.New("backup file is empty")

	//ErrNotificationFailure matches every NotificationError
	ErrNotificationFailure = errors.New("notification failed")
)

//UploadPhase names the step of the multipart upload that failed
type UploadPhase string

const (
	PhaseValidate UploadPhase = "validate"
	PhaseInitiate UploadPhase = "initiate"
	PhaseTransfer UploadPhase = "transfer"
	PhaseCommit   UploadPhase = "commit"
)

//UploadError describes a failed upload and the phase it failed in
type UploadError struct {
	Phase    UploadPhase
	Bucket   string
	Key      string
	UploadID string

	//PartNumber is set for transfer failures only
	PartNumber int32

	Err error
}

func (e *UploadError) Error() string {
	switch {
	case e.Phase == PhaseTransfer && e.PartNumber > 0:
		return fmt.Sprintf("upload %s of %s/%s failed at part %d: %v", e.Phase, e.Bucket, e.Key, e.PartNumber, e.Err)
	default:
		return fmt.Sprintf("upload %s of %s/%s failed: %v", e.Phase, e.Bucket, e.Key, e.Err)
	}
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

//Is lets errors.Is(err, ErrUploadPhaseFailure) match any UploadError
func (e *UploadError) Is(target error) bool {
	return target == ErrUploadPhaseFailure
}

//NotificationError wraps a failure to deliver the operator alert
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to publish alert to %s: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

func (e *NotificationError) Is(target error) bool {
	return target == ErrNotificationFailure
}

//FailedPhase returns the phase of the first UploadError in the chain, or "" if there is none
func FailedPhase(err error) UploadPhase {
	var ue *UploadError
	if errors.As(err, &ue) {
		return ue.Phase
	}
	return ""
}
