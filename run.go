package main

import (
	"context"
	"time"

	"vtcbackup/domain"

	"go.uber.org/multierr"
)

//the alert is sent even when the run context has already expired
const notifyTimeout = 30 * time.Second

//selects today's backup, uploads it and alerts the operator if the upload fails. Selection failures
//return before the store or notifier are touched. The result is either nil (stored) or an error (alerted or not)
func run(ctx context.Context, appConfig domain.Config, store ObjectStore, notifier Notifier) error {
	logger := appConfig.Logger()
	defer logger.Sync()

	bf, err := selectBackupFile(appConfig)
	if err != nil {
		return err
	}

	uploadStart := time.Now()
	session, uploadErr := newChunkedUploader(appConfig, store).Upload(ctx, bf)
	if uploadErr == nil {
		if !appConfig.Dryrun() {
			displayUploadStats(appConfig, bf, session, time.Since(uploadStart))
		}
		return nil
	}

	alert := buildAlert(appConfig, bf, uploadErr)
	if appConfig.Dryrun() {
		logger.Infow("dryrun: alert not sent", "subject", alert.Subject, "message", alert.Message, "meta", domain.Notify)
		return uploadErr
	}

	notifyCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := notifier.Publish(notifyCtx, alert); err != nil {
		logger.Errorw("failed to send failure alert", "awsCode", apiErrorCode(err), "err", err, "meta", domain.Notify)
		return multierr.Append(uploadErr, err)
	}
	logger.Infow("failure alert sent", "subject", alert.Subject, "phase", domain.FailedPhase(uploadErr), "meta", domain.Notify)

	return uploadErr
}
