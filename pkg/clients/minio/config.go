package minio

import (
	"errors"
	"time"
)

// maxStatementTruncateLen caps operation descriptions recorded on trace
// spans. Object keys embed member ids and upload filenames, so spans
// carry only a truncated prefix.
const maxStatementTruncateLen = 100

// Defaults for the vidhive Kubernetes deployment, where MinIO holds the
// uploaded media files (profile images, videos, thumbnails).
const (
	// DefaultEndpoint is the in-cluster Service DNS name of the MinIO
	// server.
	DefaultEndpoint = "minio.vidhive.svc.cluster.local:9000"

	// DefaultBucket is the bucket holding all vidhive media objects.
	// The media layer namespaces object keys by class prefix inside it.
	DefaultBucket = "vidhive-media"

	// DefaultRegion satisfies the S3 API's region requirement.
	DefaultRegion = "us-east-1"

	// DefaultUseSSL is false because in-cluster traffic is encrypted by
	// the service mesh. Internet-facing MinIO needs UseSSL true.
	DefaultUseSSL = false

	// DefaultHealthTimeout bounds a health probe when the caller's
	// context carries no deadline.
	DefaultHealthTimeout = 5 * time.Second
)

// Secret holds the MinIO secret key and redacts itself when printed or
// serialized. Use [Secret.Value] to read the actual value, and keep
// that value out of logs and error messages.
type Secret string

// redacted replaces secret values in all string output.
const redacted = "[REDACTED]"

// String returns "[REDACTED]".
func (s Secret) String() string {
	return redacted
}

// GoString returns "[REDACTED]" so %#v formatting stays safe.
func (s Secret) GoString() string {
	return redacted
}

// Value returns the underlying secret string.
func (s Secret) Value() string {
	return string(s)
}

// MarshalText implements encoding.TextMarshaler, returning "[REDACTED]"
// so the secret never lands in serialized configuration.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Config holds MinIO connection settings. The env tags are consumed by
// the config loader, which prefixes them with the service prefix and
// the parent section tag, so the Endpoint field of a storage section is
// read from VIDHIVE_STORAGE_ENDPOINT.
type Config struct {
	// Endpoint is the MinIO server host and port.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint" env:"ENDPOINT"`

	// AccessKey authenticates against the MinIO server.
	AccessKey string `json:"access_key,omitempty" yaml:"access_key" env:"ACCESS_KEY"`

	// SecretKey is the MinIO secret key, redacted in all output.
	SecretKey Secret `json:"-" yaml:"secret_key" env:"SECRET_KEY"`

	// Bucket is the bucket holding the media objects.
	Bucket string `json:"bucket,omitempty" yaml:"bucket" env:"BUCKET"`

	// Region is the S3 region reported to the server.
	Region string `json:"region,omitempty" yaml:"region" env:"REGION"`

	// UseSSL enables TLS on the MinIO connection.
	UseSSL bool `json:"use_ssl,omitempty" yaml:"use_ssl" env:"USE_SSL"`
}

// DefaultConfig returns a Config with the in-cluster vidhive defaults.
// Override fields as needed before passing the config to [NewClient].
func DefaultConfig() *Config {
	return &Config{
		Endpoint: DefaultEndpoint,
		Bucket:   DefaultBucket,
		Region:   DefaultRegion,
		UseSSL:   DefaultUseSSL,
	}
}

// Validate fills zero-valued fields with defaults and checks the rest.
// Endpoint and AccessKey must be set; Bucket and Region default.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio: config endpoint must not be empty")
	}
	if c.AccessKey == "" {
		return errors.New("minio: config access_key must not be empty")
	}
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	return nil
}

// truncateStatement shortens an operation description to
// maxStatementTruncateLen runes for span attributes, appending "..."
// when it was cut. Rune-aware so multi-byte characters in object keys
// are not split.
func truncateStatement(s string) string {
	runes := []rune(s)
	if len(runes) <= maxStatementTruncateLen {
		return s
	}
	return string(runes[:maxStatementTruncateLen]) + "..."
}
