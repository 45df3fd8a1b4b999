package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pierrec/lz4/v4"

	"github.com/launix-de/cephosd/log"
	"github.com/launix-de/cephosd/store"
)

// Target names the S3-compatible bucket an export is pushed to,
// mirroring the teacher's S3Factory shape (credentials, region,
// optional custom endpoint for MinIO-style deployments).
type Target struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	Prefix          string
	ForcePathStyle  bool
}

// Exporter pushes lz4-compressed store snapshots to an S3 target.
type Exporter struct {
	target Target
	log    *log.Logger
	client *s3.Client
}

func NewExporter(target Target, logger *log.Logger) (*Exporter, error) {
	ctx := context.Background()

	var opts []func(*config.LoadOptions) error
	if target.Region != "" {
		opts = append(opts, config.WithRegion(target.Region))
	}
	if target.AccessKeyID != "" && target.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(target.AccessKeyID, target.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("snapshot: loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if target.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(target.Endpoint) })
	}
	if target.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	return &Exporter{
		target: target,
		log:    logger,
		client: s3.NewFromConfig(cfg, s3Opts...),
	}, nil
}

// Export encodes s, compresses the export with lz4, and uploads it to
// "<prefix>/<name>.lz4". The object key is returned on success.
func (e *Exporter) Export(ctx context.Context, s *store.Store, name string) (string, error) {
	raw, err := Encode(s)
	if err != nil {
		return "", fmt.Errorf("snapshot: encoding store: %w", err)
	}

	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("snapshot: lz4 compression: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("snapshot: lz4 flush: %w", err)
	}

	key := e.key(name)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(e.target.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(compressed.Bytes()),
	})
	if err != nil {
		return "", fmt.Errorf("snapshot: uploading %s: %w", key, err)
	}

	e.log.Infof("snapshot: exported %d objects (%d bytes raw, %d compressed) to %s",
		s.Len(), len(raw), compressed.Len(), key)
	return key, nil
}

// Import downloads and decodes a previously exported snapshot.
func (e *Exporter) Import(ctx context.Context, key string) (*store.Store, error) {
	resp, err := e.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.target.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: fetching %s: %w", key, err)
	}
	defer resp.Body.Close()

	compressed, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading %s: %w", key, err)
	}

	zr := lz4.NewReader(bytes.NewReader(compressed))
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("snapshot: lz4 decompression: %w", err)
	}

	return Decode(raw)
}

func (e *Exporter) key(name string) string {
	if e.target.Prefix == "" {
		return name + ".lz4"
	}
	return e.target.Prefix + "/" + name + ".lz4"
}

// DefaultName builds an export object name from the current time, one
// export per second resolution.
func DefaultName(t time.Time) string {
	return "cephosd-" + t.UTC().Format("20060102-150405")
}
