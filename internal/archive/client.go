// Package archive uploads sealed credential bundles to an S3-compatible
// object store and turns the resulting share URL into a compact locator.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/pairgate/pairgate/pkg/common"
)

var (
	ErrAuth     = errors.New("archive: authentication rejected")
	ErrNetwork  = errors.New("archive: transport failure")
	ErrProtocol = errors.New("archive: store rejected request")
)

// Config carries the object-store settings. Credentials arrive here from the
// application config or environment only.
type Config struct {
	Bucket     string
	Prefix     string
	Region     string
	Endpoint   string
	PathStyle  bool
	AccessKey  string
	SecretKey  string
	PublicHost string
	Tag        string
}

// Client is the remote archive client. One Upload call makes exactly one
// attempt; retry policy belongs to the caller.
type Client struct {
	client     *s3.Client
	uploader   *manager.Uploader
	bucket     string
	prefix     string
	publicHost string
	tag        string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		func(opts *awsconfig.LoadOptions) error {
			if cfg.Endpoint != "" {
				opts.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
					func(service, region string, options ...interface{}) (aws.Endpoint, error) {
						return aws.Endpoint{
							URL:               cfg.Endpoint,
							SigningRegion:     cfg.Region,
							HostnameImmutable: cfg.PathStyle,
						}, nil
					},
				)
			}
			if cfg.AccessKey != "" && cfg.SecretKey != "" {
				opts.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKey, cfg.SecretKey, "",
				)
			}
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	publicHost := cfg.PublicHost
	if publicHost == "" {
		publicHost = cfg.Bucket + ".s3." + cfg.Region + ".amazonaws.com"
	}
	tag := cfg.Tag
	if tag == "" {
		tag = DefaultTag
	}
	return &Client{
		client:     client,
		uploader:   manager.NewUploader(client),
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		publicHost: publicHost,
		tag:        tag,
	}, nil
}

// Tag returns the locator tag this client stamps on uploads.
func (c *Client) Tag() string {
	return c.tag
}

func (c *Client) key(objectID string) string {
	if c.prefix == "" {
		return objectID
	}
	return c.prefix + "/" + objectID
}

// Upload seals data and uploads it under a fresh object id. Returns the
// compact locator for the stored bundle. Exactly one attempt per call.
func (c *Client) Upload(ctx context.Context, data []byte, name string) (string, error) {
	sealed, keyHex, err := Seal(data)
	if err != nil {
		return "", fmt.Errorf("seal bundle: %w", err)
	}

	objectID := name + "-" + common.RandomAlnum(8)
	_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.key(objectID)),
		Body:        bytes.NewReader(sealed),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", classify(err)
	}

	url := ShareURL(c.publicHost, objectID, keyHex)
	locator := Derive(c.tag, url)
	zap.L().Info("archive: bundle uploaded",
		zap.String("object_id", objectID),
		zap.Int("sealed_bytes", len(sealed)))
	return locator, nil
}

// Download fetches the object named by locator and opens the seal with the
// fragment key.
func (c *Client) Download(ctx context.Context, locator string) ([]byte, error) {
	objectID, keyHex, err := Parse(c.tag, locator)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(objectID)),
	})
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	sealed, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	plain, err := Open(sealed, keyHex)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	return plain, nil
}

// classify maps SDK errors onto the package error taxonomy while keeping the
// original error in the chain.
func classify(err error) error {
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
