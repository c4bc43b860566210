package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v8"
)

type Config struct {
	AppName  string `env:"APP_NAME" envDefault:"Image resizer"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	RateLimitMaxRequests   int `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"100"`
	RateLimitDurationInSec int `env:"RATE_LIMIT_DURATION_IN_SEC" envDefault:"5"`

	BodyLimitMB         int `env:"BODY_LIMIT_MB" envDefault:"32"`
	RequestTimeoutInSec int `env:"REQUEST_TIMEOUT_IN_SEC" envDefault:"30"`

	// ExecutorURL switches the bridge to a remote executor; empty runs the
	// executor in process.
	ExecutorURL  string `env:"EXECUTOR_URL"`
	LiteralWidth bool   `env:"BRIDGE_LITERAL_WIDTH" envDefault:"false"`

	TempDir       string `env:"TEMP_DIR"`
	AlbumDir      string `env:"ALBUM_DIR" envDefault:"./album"`
	// FileURLRoot limits file sources to one directory; empty limits them to
	// the local store directories.
	FileURLRoot   string `env:"FILE_URL_ROOT"`
	MaxDownloadMB int    `env:"MAX_DOWNLOAD_MB" envDefault:"32"`

	MaxInputPixels  int64 `env:"MAX_INPUT_PIXELS" envDefault:"50000000"`
	MaxOutputPixels int64 `env:"MAX_OUTPUT_PIXELS" envDefault:"50000000"`

	S3Region    string `env:"S3_REGION"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Prefix    string `env:"S3_PREFIX"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Endpoint  string `env:"S3_ENDPOINT"`

	MongoURI        string `env:"MONGO_URI"`
	MongoDatabase   string `env:"MONGO_DATABASE" envDefault:"imageresizer"`
	MongoCollection string `env:"MONGO_COLLECTION" envDefault:"stored_images"`

	CacheEnabled  bool `env:"CACHE_ENABLED" envDefault:"false"`
	CacheTTLInMin int  `env:"CACHE_TTL_IN_MIN" envDefault:"5"`
}

func New() (*Config, error) {
	conf := &Config{}

	if err := env.Parse(conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if conf.MaxInputPixels <= 0 || conf.MaxOutputPixels <= 0 {
		return nil, fmt.Errorf("MAX_INPUT_PIXELS and MAX_OUTPUT_PIXELS must be positive")
	}

	if conf.S3Bucket != "" && (conf.S3AccessKey == "" || conf.S3SecretKey == "" || conf.S3Endpoint == "") {
		return nil, fmt.Errorf("S3_BUCKET requires S3_ACCESS_KEY, S3_SECRET_KEY and S3_ENDPOINT")
	}

	return conf, nil
}

func MustNew() *Config {
	conf, err := New()
	if err != nil {
		panic(err)
	}

	return conf
}

func (c *Config) RateLimitDuration() time.Duration {
	return time.Duration(c.RateLimitDurationInSec) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutInSec) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLInMin) * time.Minute
}

func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

func (c *Config) MaxDownloadBytes() int64 {
	return int64(c.MaxDownloadMB) << 20
}
