package main

import (
	"time"

	"vtcbackup/domain"
)

func displayUploadStats(appConfig domain.Config, bf *domain.BackupFile, session *domain.UploadSession, elapsed time.Duration) {

	logger := appConfig.Logger()
	defer logger.Sync()

	logger.Infow("backup stored", "bucket", session.Bucket, "key", session.Key, "storageClass", appConfig.StorageClass(), "meta", domain.Stat)
	logger.Infow("upload metrics", "size", bf.Size, "bytesSent", session.Bytes(), "parts", len(session.Parts),
		"time", prettyTime(elapsed), "throughput", throughput(session.Bytes(), elapsed), "meta", domain.Stat)
}

//human readable transfer rate in MiB/s
func throughput(bytes int64, elapsed time.Duration) string {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return "n/a"
	}
	return formatRate(float64(bytes) / (1024 * 1024) / secs)
}
