// Package minio provides the traced S3-compatible object storage client
// behind the vidhive media layer. Uploaded profile images, video files,
// and thumbnails are stored here; only their object keys go to the
// database.
//
// The client is stateless HTTP and safe for concurrent use. Production
// code builds one with [NewClient]; tests inject a fake store through
// [NewFromStore]:
//
//	cfg := minio.DefaultConfig()
//	cfg.AccessKey = os.Getenv("VIDHIVE_STORAGE_ACCESS_KEY")
//	cfg.SecretKey = minio.Secret(os.Getenv("VIDHIVE_STORAGE_SECRET_KEY"))
//	client, err := minio.NewClient(ctx, *cfg)
//
// Every operation opens an OpenTelemetry span carrying the bucket and a
// truncated operation description, so object keys derived from user
// input stay out of the telemetry backend.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope for this package.
const tracerName = "github.com/vidhive/vidhive-server/pkg/clients/minio"

// ObjectStore is the object storage surface the client needs.
// [*minio.Client] satisfies it directly, and fakes satisfy it for unit
// tests, so [NewFromStore] can inject either. Signatures match the
// minio-go v7 API.
type ObjectStore interface {
	// PutObject uploads an object.
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)

	// GetObject opens an object for reading. The returned *minio.Object
	// is an io.ReadCloser the caller must close.
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)

	// RemoveObject deletes an object.
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error

	// StatObject fetches object metadata without the body.
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)

	// ListObjects streams the objects matching opts.
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo

	// BucketExists reports whether a bucket exists.
	BucketExists(ctx context.Context, bucketName string) (bool, error)

	// MakeBucket creates a bucket.
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error

	// PresignedGetObject builds a time-limited download URL.
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

var _ ObjectStore = (*minio.Client)(nil)

// Client layers tracing and coded error classification over an
// [ObjectStore]. Safe for concurrent use; create one per endpoint and
// share it.
type Client struct {
	store  ObjectStore
	config *Config
	tracer trace.Tracer
}

// NewClient validates cfg, builds the underlying minio-go client, and
// probes connectivity with BucketExists on the configured bucket. The
// bucket does not have to exist yet; a successful API call proves the
// server is reachable and the credentials work.
//
// Error codes:
//   - [vherr.CodeValidation]: invalid configuration
//   - [vherr.CodeInternalStorage]: client construction failure
//   - [vherr.CodeUnavailableDependency]: server unreachable
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, vherr.Wrap(err, vherr.CodeValidation,
			"minio: invalid configuration")
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey.Value(), ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, vherr.Wrap(err, vherr.CodeInternalStorage,
			"minio: failed to create client")
	}

	if _, err := minioClient.BucketExists(ctx, cfg.Bucket); err != nil {
		return nil, vherr.Wrap(err, vherr.CodeUnavailableDependency,
			"minio: failed to connect to server")
	}

	return &Client{
		store:  minioClient,
		config: &cfg,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// NewFromStore wraps an existing [ObjectStore], typically a fake in
// tests. cfg is stored without validation; nil means a zero Config.
func NewFromStore(store ObjectStore, cfg *Config) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Client{
		store:  store,
		config: cfg,
		tracer: otel.Tracer(tracerName),
	}
}

// Bucket returns the configured media bucket name.
func (c *Client) Bucket() string {
	return c.config.Bucket
}

// PutObject uploads an object.
//
// Failures come back as [*vherr.Error]: [vherr.CodeTimeout] for an
// exceeded deadline, [vherr.CodeInternalStorage] otherwise.
func (c *Client) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	ctx, span := c.startSpan(ctx, "PutObject", bucketName, fmt.Sprintf("PUT %s/%s", bucketName, objectName))

	info, err := c.store.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
	finishSpan(span, err)
	if err != nil {
		return info, wrapError(err, "minio: put object failed")
	}
	return info, nil
}

// GetObject opens an object for reading. The returned [*minio.Object]
// must be closed by the caller.
func (c *Client) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	ctx, span := c.startSpan(ctx, "GetObject", bucketName, fmt.Sprintf("GET %s/%s", bucketName, objectName))

	obj, err := c.store.GetObject(ctx, bucketName, objectName, opts)
	finishSpan(span, err)
	if err != nil {
		return nil, wrapError(err, "minio: get object failed")
	}
	return obj, nil
}

// RemoveObject deletes an object.
func (c *Client) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	ctx, span := c.startSpan(ctx, "RemoveObject", bucketName, fmt.Sprintf("DELETE %s/%s", bucketName, objectName))

	err := c.store.RemoveObject(ctx, bucketName, objectName, opts)
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, "minio: remove object failed")
	}
	return nil
}

// StatObject fetches object metadata without downloading the body.
func (c *Client) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	ctx, span := c.startSpan(ctx, "StatObject", bucketName, fmt.Sprintf("STAT %s/%s", bucketName, objectName))

	info, err := c.store.StatObject(ctx, bucketName, objectName, opts)
	finishSpan(span, err)
	if err != nil {
		return info, wrapError(err, "minio: stat object failed")
	}
	return info, nil
}

// ListObjects streams the objects matching opts. The caller should
// drain the channel to completion.
func (c *Client) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ctx, span := c.startSpan(ctx, "ListObjects", bucketName, fmt.Sprintf("LIST %s prefix=%s", bucketName, opts.Prefix))
	defer span.End()

	return c.store.ListObjects(ctx, bucketName, opts)
}

// BucketExists reports whether a bucket exists.
func (c *Client) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	ctx, span := c.startSpan(ctx, "BucketExists", bucketName, fmt.Sprintf("HEAD %s", bucketName))

	exists, err := c.store.BucketExists(ctx, bucketName)
	finishSpan(span, err)
	if err != nil {
		return false, wrapError(err, "minio: bucket exists check failed")
	}
	return exists, nil
}

// EnsureBucket creates the bucket if it does not exist yet. Called once
// at startup so the media layer can assume the bucket is present.
func (c *Client) EnsureBucket(ctx context.Context, bucketName string) error {
	ctx, span := c.startSpan(ctx, "EnsureBucket", bucketName, fmt.Sprintf("ENSURE %s", bucketName))

	exists, err := c.store.BucketExists(ctx, bucketName)
	if err == nil && !exists {
		err = c.store.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: c.config.Region})
	}
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, "minio: ensure bucket failed")
	}
	return nil
}

// PresignedGetObject builds a time-limited download URL, used to hand
// playback and image URLs to browsers without proxying the bytes.
func (c *Client) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	ctx, span := c.startSpan(ctx, "PresignedGetObject", bucketName, fmt.Sprintf("PRESIGN GET %s/%s", bucketName, objectName))

	u, err := c.store.PresignedGetObject(ctx, bucketName, objectName, expires, reqParams)
	finishSpan(span, err)
	if err != nil {
		return nil, wrapError(err, "minio: presigned get object failed")
	}
	return u, nil
}

// Health probes the server with BucketExists on the configured bucket,
// applying [DefaultHealthTimeout] when the context has no deadline. A
// failed probe returns a [*vherr.Error] with
// [vherr.CodeUnavailableDependency]. Intended for readiness probes.
func (c *Client) Health(ctx context.Context) error {
	ctx, span := c.startSpan(ctx, "Health", c.config.Bucket, "BucketExists "+c.config.Bucket)

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHealthTimeout)
		defer cancel()
	}

	_, err := c.store.BucketExists(ctx, c.config.Bucket)
	finishSpan(span, err)
	if err != nil {
		return vherr.Wrap(err, vherr.CodeUnavailableDependency,
			"minio: health check failed")
	}
	return nil
}

// Close is a no-op; the client is stateless HTTP with nothing to
// release. Present so all clients share the same lifecycle surface.
func (c *Client) Close() {}

// Store exposes the underlying [ObjectStore] for operations the Client
// does not wrap.
func (c *Client) Store() ObjectStore {
	return c.store
}

// startSpan opens a client span with the OpenTelemetry database
// semantic attributes.
func (c *Client) startSpan(ctx context.Context, operationName, bucketName, statement string) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, "minio."+operationName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("db.system", "minio"),
		attribute.String("db.name", bucketName),
		attribute.String("db.statement", truncateStatement(statement)),
	)
	return ctx, span
}

// finishSpan records err on the span, sets its status, and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// wrapError classifies a storage error. An exceeded deadline becomes
// [vherr.CodeTimeout]; everything else, cancellation included, becomes
// [vherr.CodeInternalStorage], since retrying an abandoned upload is
// wasteful.
func wrapError(err error, message string) *vherr.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return vherr.Wrap(err, vherr.CodeTimeout, message)
	}
	return vherr.Wrap(err, vherr.CodeInternalStorage, message)
}
