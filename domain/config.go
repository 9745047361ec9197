package domain

import (
	"fmt"
	"os"
	"strings"
	"time"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	defaultBucket       = "cubl-vtc"
	defaultStorageClass = "ONEZONE_IA"
	defaultRegion       = "us-west-2"
	defaultTopicArn     = "arn:aws:sns:us-west-2:735677975035:VTCBackupStatus"
	defaultAlertSubject = "VTC Notification - Backup Status"
	defaultAlertMessage = "Error: Unable to copy backup file to S3"
	defaultPattern      = "*.vtcbackup"

	//MinPartSize is the smallest part S3 accepts for every part but the last
	MinPartSize int64 = 5 * 1024 * 1024

	defaultPartSize = MinPartSize

	//ConfigPathEnv names the env var consulted when no -config flag is given
	ConfigPathEnv = "VTCBACKUP_CONFIG"
)

//Config is the config
type Config interface {
	Bucket() string
	StorageClass() string
	PartSize() int64
	TopicArn() string
	AlertSubject() string
	AlertMessage() string
	Region() string
	AwsProfile() string
	Endpoint() string
	AccessKeyID() string
	SecretAccessKey() string
	BackupDir() string
	Pattern() string
	Dryrun() bool
	Timeout() time.Duration
	RunID() string
	Now() time.Time
	Logger() *zap.SugaredLogger
	String() string
}

type appConfig struct {
	bucket          string
	storageClass    string
	partSize        int64
	topicArn        string
	alertSubject    string
	alertMessage    string
	region          string
	awsProfile      string
	endpoint        string
	accessKeyID     string
	secretAccessKey string
	backupDir       string
	pattern         string
	dryrun          bool
	timeout         time.Duration
	runID           string
	clock           func() time.Time
	logger          *zap.SugaredLogger
}

//fileConfig mirrors the optional YAML config file. Zero values leave the default in place
type fileConfig struct {
	Bucket       string        `yaml:"bucket"`
	StorageClass string        `yaml:"storage_class"`
	PartSize     int64         `yaml:"part_size"`
	TopicArn     string        `yaml:"topic_arn"`
	AlertSubject string        `yaml:"alert_subject"`
	AlertMessage string        `yaml:"alert_message"`
	Region       string        `yaml:"region"`
	AwsProfile   string        `yaml:"aws_profile"`
	Endpoint     string        `yaml:"endpoint"`
	Pattern      string        `yaml:"pattern"`
	Timeout      time.Duration `yaml:"timeout"`
}

//Option tweaks a config after all other sources have been applied. Mostly useful in tests
type Option func(*appConfig)

//WithClock replaces the wall clock used to decide what "today" is
func WithClock(clock func() time.Time) Option {
	return func(ac *appConfig) {
		ac.clock = clock
	}
}

//WithLogger replaces the zap logger built from the command options
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(ac *appConfig) {
		ac.logger = logger
	}
}

//NewConfig builds the config from defaults, then the YAML file, then the environment, then the command options
func NewConfig(cmdOpts *CommandOpts, opts ...Option) (*appConfig, error) {
	c := defaultConfig()

	configPath := cmdOpts.ConfigPath
	if configPath == "" {
		configPath = os.Getenv(ConfigPathEnv)
	}
	if configPath != "" {
		if err := c.readConfigFile(configPath); err != nil {
			return nil, err
		}
	}

	c.applyEnv()

	c.backupDir = cmdOpts.BackupDir
	c.dryrun = cmdOpts.Dryrun

	for _, opt := range opts {
		opt(c)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	if c.logger == nil {
		logger, err := buildLogger(cmdOpts.UseDebugLogger)
		if err != nil {
			return nil, fmt.Errorf("unable to build logger: %w", err)
		}
		c.logger = logger
	}
	c.logger = c.logger.With("runId", c.runID)

	return c, nil
}

//Bucket returns the target bucket
func (ac *appConfig) Bucket() string {
	return ac.bucket
}

//StorageClass returns the S3 storage class every upload is created with
func (ac *appConfig) StorageClass() string {
	return ac.storageClass
}

//PartSize returns the fixed multipart chunk size in bytes
func (ac *appConfig) PartSize() int64 {
	return ac.partSize
}

//TopicArn returns the SNS topic alerts are published to
func (ac *appConfig) TopicArn() string {
	return ac.topicArn
}

func (ac *appConfig) AlertSubject() string {
	return ac.alertSubject
}

func (ac *appConfig) AlertMessage() string {
	return ac.alertMessage
}

//Region returns the AWS region
func (ac *appConfig) Region() string {
	return ac.region
}

//AwsProfile returns the AWS profile to use for accessing S3 and SNS (see $HOME/.aws). May be empty
func (ac *appConfig) AwsProfile() string {
	return ac.awsProfile
}

//Endpoint returns a custom S3 endpoint (eg MinIO) or "" for AWS itself
func (ac *appConfig) Endpoint() string {
	return ac.endpoint
}

func (ac *appConfig) AccessKeyID() string {
	return ac.accessKeyID
}

func (ac *appConfig) SecretAccessKey() string {
	return ac.secretAccessKey
}

//BackupDir returns the directory that is scanned for today's backup
func (ac *appConfig) BackupDir() string {
	return ac.backupDir
}

//Pattern returns the glob backup files must match
func (ac *appConfig) Pattern() string {
	return ac.pattern
}

//Dryrun is true when no AWS calls should be made
func (ac *appConfig) Dryrun() bool {
	return ac.dryrun
}

//Timeout bounds the whole run. Zero means no timeout
func (ac *appConfig) Timeout() time.Duration {
	return ac.timeout
}

//RunID uniquely identifies this run in logs and alerts
func (ac *appConfig) RunID() string {
	return ac.runID
}

//Now returns the current time from the configured clock
func (ac *appConfig) Now() time.Time {
	return ac.clock()
}

//Logger returns the logger
func (ac *appConfig) Logger() *zap.SugaredLogger {
	return ac.logger
}

//String dumps the config for dryrun output. Secrets are masked
func (ac *appConfig) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  bucket:        %s\n", ac.bucket))
	sb.WriteString(fmt.Sprintf("  storageClass:  %s\n", ac.storageClass))
	sb.WriteString(fmt.Sprintf("  partSize:      %d\n", ac.partSize))
	sb.WriteString(fmt.Sprintf("  topicArn:      %s\n", ac.topicArn))
	sb.WriteString(fmt.Sprintf("  region:        %s\n", ac.region))
	sb.WriteString(fmt.Sprintf("  awsProfile:    %s\n", ac.awsProfile))
	sb.WriteString(fmt.Sprintf("  endpoint:      %s\n", ac.endpoint))
	sb.WriteString(fmt.Sprintf("  staticCreds:   %t\n", ac.accessKeyID != ""))
	sb.WriteString(fmt.Sprintf("  backupDir:     %s\n", ac.backupDir))
	sb.WriteString(fmt.Sprintf("  pattern:       %s\n", ac.pattern))
	sb.WriteString(fmt.Sprintf("  timeout:       %s\n", ac.timeout))
	return sb.String()
}

func (ac *appConfig) readConfigFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read config file: %s because: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("unable to parse config file: %s because: %w", path, err)
	}

	setString(&ac.bucket, fc.Bucket)
	setString(&ac.storageClass, fc.StorageClass)
	setString(&ac.topicArn, fc.TopicArn)
	setString(&ac.alertSubject, fc.AlertSubject)
	setString(&ac.alertMessage, fc.AlertMessage)
	setString(&ac.region, fc.Region)
	setString(&ac.awsProfile, fc.AwsProfile)
	setString(&ac.endpoint, fc.Endpoint)
	setString(&ac.pattern, fc.Pattern)
	if fc.PartSize != 0 {
		ac.partSize = fc.PartSize
	}
	if fc.Timeout != 0 {
		ac.timeout = fc.Timeout
	}
	return nil
}

func (ac *appConfig) applyEnv() {
	setString(&ac.bucket, os.Getenv("VTCBACKUP_BUCKET"))
	setString(&ac.topicArn, os.Getenv("VTCBACKUP_TOPIC_ARN"))
	setString(&ac.region, os.Getenv("AWS_REGION"))
	setString(&ac.awsProfile, os.Getenv("AWS_PROFILE"))
	setString(&ac.endpoint, os.Getenv("AWS_ENDPOINT_URL"))
	setString(&ac.accessKeyID, os.Getenv("AWS_ACCESS_KEY_ID"))
	setString(&ac.secretAccessKey, os.Getenv("AWS_SECRET_ACCESS_KEY"))
}

func (ac *appConfig) validate() error {
	if ac.backupDir == "" {
		return fmt.Errorf("backup directory is required")
	}
	if ac.bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if ac.topicArn == "" {
		return fmt.Errorf("notification topic ARN is required")
	}
	if ac.partSize < MinPartSize {
		return fmt.Errorf("part size %d is below the S3 minimum of %d bytes", ac.partSize, MinPartSize)
	}
	if !knownStorageClass(ac.storageClass) {
		return fmt.Errorf("unknown storage class: %s", ac.storageClass)
	}
	return nil
}

func knownStorageClass(class string) bool {
	for _, v := range s3types.StorageClass("").Values() {
		if string(v) == class {
			return true
		}
	}
	return false
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func buildLogger(debug bool) (*zap.SugaredLogger, error) {
	zc := zap.NewProductionConfig()
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func defaultConfig() *appConfig {
	return &appConfig{
		bucket:       defaultBucket,
		storageClass: defaultStorageClass,
		partSize:     defaultPartSize,
		topicArn:     defaultTopicArn,
		alertSubject: defaultAlertSubject,
		alertMessage: defaultAlertMessage,
		region:       defaultRegion,
		pattern:      defaultPattern,
		runID:        uuid.NewString(),
		clock:        time.Now,
	}
}
