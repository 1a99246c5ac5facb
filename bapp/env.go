package bapp

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the interface that all environment configurations must implement.
// Embed BaseEnvironment in your struct to satisfy this interface.
type Environment interface {
	port() int
	serviceName() string
	healthPath() string
	logLevel() zapcore.Level
	otelExporter() string
	awsRegion() string
	serverLimits() limits
	staticDirs() ([]StaticMapping, error)
	staticBucket() string
	notFoundFile() string
}

// BaseEnvironment contains the environment variables every app reads.
// Embed this in your custom environment struct.
type BaseEnvironment struct {
	Port         int           `env:"BS_PORT" envDefault:"8080"`
	ServiceName  string        `env:"BS_SERVICE_NAME,required"`
	HealthPath   string        `env:"BS_HEALTH_PATH" envDefault:"/health"`
	LogLevel     zapcore.Level `env:"BS_LOG_LEVEL" envDefault:"info"`
	OtelExporter string        `env:"BS_OTEL_EXPORTER" envDefault:"stdout"`
	AWSRegion    string        `env:"AWS_REGION"`

	// KeepAlive is how long an idle persistent connection is kept open.
	KeepAlive      time.Duration `env:"BS_KEEP_ALIVE" envDefault:"5s"`
	MaxHeadBytes   int           `env:"BS_MAX_HEAD_BYTES" envDefault:"1048576"`
	MaxBodyBytes   int64         `env:"BS_MAX_BODY_BYTES" envDefault:"33554432"`
	ReadChunkBytes int           `env:"BS_READ_CHUNK_BYTES" envDefault:"4096"`

	// StaticDirs is a comma separated list of prefix=dir pairs, e.g. "/assets=./public,/=./www".
	StaticDirs []string `env:"BS_STATIC_DIRS" envSeparator:","`
	// StaticBucket makes the static directories key prefixes of this S3 bucket.
	StaticBucket string `env:"BS_STATIC_BUCKET"`
	// NotFoundFile is served as the body of every 404 response when set.
	NotFoundFile string `env:"BS_NOT_FOUND_FILE"`
}

// StaticMapping maps a url prefix to a directory or key prefix.
type StaticMapping struct {
	Prefix string
	Dir    string
}

type limits struct {
	keepAlive      time.Duration
	maxHeadBytes   int
	maxBodyBytes   int64
	readChunkBytes int
}

func (e BaseEnvironment) port() int               { return e.Port }
func (e BaseEnvironment) serviceName() string     { return e.ServiceName }
func (e BaseEnvironment) healthPath() string      { return e.HealthPath }
func (e BaseEnvironment) logLevel() zapcore.Level { return e.LogLevel }
func (e BaseEnvironment) otelExporter() string    { return e.OtelExporter }
func (e BaseEnvironment) awsRegion() string       { return e.AWSRegion }
func (e BaseEnvironment) staticBucket() string    { return e.StaticBucket }
func (e BaseEnvironment) notFoundFile() string    { return e.NotFoundFile }

func (e BaseEnvironment) serverLimits() limits {
	return limits{
		keepAlive:      e.KeepAlive,
		maxHeadBytes:   e.MaxHeadBytes,
		maxBodyBytes:   e.MaxBodyBytes,
		readChunkBytes: e.ReadChunkBytes,
	}
}

func (e BaseEnvironment) staticDirs() ([]StaticMapping, error) {
	return parseStaticDirs(e.StaticDirs)
}

func parseStaticDirs(entries []string) ([]StaticMapping, error) {
	ms := make([]StaticMapping, 0, len(entries))
	for _, ent := range entries {
		prefix, dir, ok := strings.Cut(strings.TrimSpace(ent), "=")
		if !ok || prefix == "" || dir == "" {
			return nil, errors.Newf("static dir %q is not of the form prefix=dir", ent)
		}

		ms = append(ms, StaticMapping{Prefix: prefix, Dir: dir})
	}

	return ms, nil
}

var _ Environment = BaseEnvironment{}

// ParseEnv parses environment variables into the given Environment type.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}

		if _, err := e.staticDirs(); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}

		return e, nil
	}
}
