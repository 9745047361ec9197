package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"vtcbackup/domain"
)

func main() {

	//note start time
	startTime := time.Now()

	//flags handling
	debugLoggingPtr := flag.Bool("debug", false, "set to enable debug logging")
	dryrunPtr := flag.Bool("dryrun", false, "set to enable dryrun (select and plan only, no aws calls)")
	configPathPtr := flag.String("config", "", "optional YAML config file overriding the built-in defaults")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <backup-dir>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	//the backup directory is the one required positional argument
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cmdOpts := &domain.CommandOpts{
		BackupDir:      flag.Arg(0),
		ConfigPath:     *configPathPtr,
		UseDebugLogger: *debugLoggingPtr,
		Dryrun:         *dryrunPtr,
	}

	//create config with defaults overriden by config file, env and app params
	appConfig, err := domain.NewConfig(cmdOpts)
	if err != nil {
		fmt.Printf("FATAL: configuration error: %v\n", err)
		os.Exit(1)
	}

	//prep the logger now that we know it is ready
	logger := appConfig.Logger()
	defer logger.Sync()

	ctx := context.Background()
	if appConfig.Timeout() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, appConfig.Timeout())
		defer cancel()
	}

	//dryrun never builds AWS clients
	var store ObjectStore
	var notifier Notifier
	if appConfig.Dryrun() {
		fmt.Printf("\nCurrent Configuration\n---------------------\n%s\n", appConfig.String())
	} else {
		awsCfg, err := newAWSConfig(ctx, appConfig)
		if err != nil {
			logger.Fatalw("critical AWS failure", "err", err, "meta", domain.Err)
		}
		store = NewS3Store(awsCfg, appConfig.Endpoint())
		notifier = NewSNSNotifier(awsCfg, appConfig.TopicArn())
	}

	err = run(ctx, appConfig, store, notifier)

	//display total run time
	totalTime := prettyTime(time.Since(startTime))
	logger.Infow("total execution time", "time", totalTime, "meta", domain.Stat)

	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrNotificationFailure):
		logger.Fatalw("upload failed and the failure alert could not be sent", "err", err, "meta", domain.Core)
	case errors.Is(err, domain.ErrUploadPhaseFailure):
		logger.Fatalw("upload failed", "alerted", !appConfig.Dryrun(), "phase", domain.FailedPhase(err), "err", err, "meta", domain.Core)
	case errors.Is(err, domain.ErrNoBackupFoundToday):
		logger.Fatalw("no backup created today. Nothing uploaded", "dir", appConfig.BackupDir(), "err", err, "meta", domain.Core)
	default:
		logger.Fatalw("backup selection failed", "err", err, "meta", domain.Err)
	}
}
