package s3client

import (
	"github.com/presic/chunker/logger"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"strings"
	"sync"
)

type Config struct {
	BucketName  string `envconfig:"CHUNKER_STORAGE_BUCKET_NAME" required:"true"`
	Region      string `envconfig:"CHUNKER_AWS_REGION_NAME" required:"true"`
	Environment string `envconfig:"CHUNKER_ENV" default:""`
	AwsEndpoint string `envconfig:"CHUNKER_AWS_ENDPOINT_URL" default:""`
	AccessKeyID string `envconfig:"CHUNKER_AWS_ACCESS_ID" default:""`
	AccessKey   string `envconfig:"CHUNKER_AWS_ACCESS_KEY" default:""`
}

// Client uploads and downloads objects in a single configured bucket.
// The underlying session is validated through STS on creation and
// replaced under lock when a transfer fails.
type Client struct {
	config Config
	mu     sync.Mutex
	sess   *session.Session
}

var clientLogger = logger.NewLogger("S3 client")
var sdkLogger = logger.NewLogger("S3 SDK")

func New() (*Client, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		clientLogger.Err(err).Msg("Failed to get proper variables from environment")
		return nil, err
	}
	client := Client{config: config}
	sess, err := client.newSession()
	if err != nil {
		return nil, err
	}
	client.sess = sess
	return &client, nil
}

func (client *Client) Upload(data string, key string) error {
	params := &s3manager.UploadInput{
		Bucket: &client.config.BucketName,
		Key:    &key,
		Body:   strings.NewReader(data),
	}
	_, err := client.upload(client.session(), params)
	if err == nil {
		return nil
	}
	sess, err := client.refreshSession(err)
	if err != nil {
		return err
	}
	_, err = client.upload(sess, params)
	return err
}

func (client *Client) Download(key string) ([]byte, error) {
	params := &s3.GetObjectInput{
		Bucket: &client.config.BucketName,
		Key:    &key,
	}
	res, err := client.download(client.session(), params)
	if err == nil {
		return res, nil
	}
	sess, err := client.refreshSession(err)
	if err != nil {
		return nil, err
	}
	return client.download(sess, params)
}

func (client *Client) Close() {}

func (client *Client) upload(sess *session.Session, params *s3manager.UploadInput) (*s3manager.UploadOutput, error) {
	transferLogger := clientLogger.With().
		Str("key", *params.Key).
		Str("bucket", *params.Bucket).Logger()
	sdkLog := sdkLogger.With().
		Str("key", *params.Key).
		Str("bucket", *params.Bucket).Logger()

	uploader := s3manager.NewUploader(sess.Copy(&aws.Config{Logger: getLogger(sdkLog)}))
	transferLogger.Debug().Msg("Uploading the file")
	return uploader.Upload(params)
}

func (client *Client) download(sess *session.Session, params *s3.GetObjectInput) ([]byte, error) {
	transferLogger := clientLogger.With().
		Str("key", *params.Key).
		Str("bucket", *params.Bucket).Logger()
	sdkLog := sdkLogger.With().
		Str("key", *params.Key).
		Str("bucket", *params.Bucket).Logger()

	downloader := s3manager.NewDownloader(sess.Copy(&aws.Config{Logger: getLogger(sdkLog)}))
	buf := aws.NewWriteAtBuffer([]byte{})

	transferLogger.Debug().Msg("Downloading file")
	size, err := downloader.Download(buf, params)
	if err != nil {
		transferLogger.Error().Err(err).Msg("Failed to download file")
		return nil, err
	}
	transferLogger.Debug().Msgf("Downloaded %v bytes", size)
	return buf.Bytes(), nil
}

func (client *Client) session() *session.Session {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.sess
}

func (client *Client) refreshSession(cause error) (*session.Session, error) {
	clientLogger.Error().Err(cause).Msg("Caught error while using S3 session, trying to refresh it")
	sess, err := client.newSession()
	if err != nil {
		clientLogger.Error().Err(err).Msg("Caught error while refreshing S3 session")
		return nil, err
	}
	client.mu.Lock()
	client.sess = sess
	client.mu.Unlock()
	clientLogger.Info().Msg("Successfully refreshed session")
	return sess, nil
}

// newSession tries instance credentials first and falls back to static
// credentials from the environment, validating each candidate with an
// STS identity call.
func (client *Client) newSession() (*session.Session, error) {
	sess, err := session.NewSession(client.createEC2Config())
	if err == nil {
		if _, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err == nil {
			clientLogger.Info().Msg("S3 session initialized using EC2")
			return sess, nil
		}
	}
	clientLogger.Info().Msg("Could not initialize S3 session using EC2, trying env credentials")
	envConfig, err := client.createEnvConfig()
	if err != nil {
		return nil, err
	}
	sess, err = session.NewSession(envConfig)
	if err != nil {
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return nil, err
	}
	if _, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err != nil {
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return nil, errors.New("could not initialize S3 session")
	}
	clientLogger.Info().Msg("S3 session initialized using env credentials")
	return sess, nil
}

func (client *Client) createEC2Config() *aws.Config {
	return &aws.Config{
		Region:     aws.String(client.config.Region),
		MaxRetries: aws.Int(4),
		LogLevel:   aws.LogLevel(aws.LogDebug),
	}
}

func (client *Client) createEnvConfig() (*aws.Config, error) {
	creds := credentials.NewStaticCredentials(
		client.config.AccessKeyID,
		client.config.AccessKey,
		"")
	if _, err := creds.Get(); err != nil {
		clientLogger.Error().Err(err).Msg("Error with credentials from environment")
		return nil, err
	}
	cfg := aws.NewConfig().
		WithRegion(client.config.Region).
		WithMaxRetries(4).
		WithCredentials(creds).
		WithLogLevel(aws.LogDebug)

	inDevEnv := client.config.Environment == "dev"
	if inDevEnv && len(client.config.AwsEndpoint) > 0 {
		cfg = cfg.WithEndpoint(client.config.AwsEndpoint).
			WithS3ForcePathStyle(true)
	}
	return cfg, nil
}

type s3Logger struct {
	log zerolog.Logger
}

func getLogger(log zerolog.Logger) *s3Logger {
	return &s3Logger{log}
}

func (logger *s3Logger) Log(v ...interface{}) {
	logger.log.Debug().Msg(fmt.Sprint(v...))
}
