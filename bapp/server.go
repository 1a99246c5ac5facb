package bapp

import (
	"context"
	"fmt"
	"net"

	"github.com/advdv/bserve"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ServerConfig holds optional configuration for the server.
type ServerConfig struct {
	HealthHandler bserve.Handler
}

// ServerParams holds the dependencies for creating a server.
type ServerParams struct {
	fx.In

	Env        Environment
	Router     *bserve.Router
	Files      bserve.FileSource
	Logger     *zap.Logger
	TracerProv trace.TracerProvider
	Propagator propagation.TextMapPropagator
}

// NewServer creates a server with the health route, static directories,
// tracing and access logging configured from the environment.
func NewServer(params ServerParams, cfg ServerConfig) (*bserve.Server, error) {
	env := params.Env

	// the health path is excluded from tracing below
	health := cfg.HealthHandler
	if health == nil {
		health = bserve.Final(defaultHealthHandler)
	}
	if _, err := params.Router.Get(env.healthPath(), health); err != nil {
		return nil, errors.Wrap(err, "register health route")
	}

	mappings, err := env.staticDirs()
	if err != nil {
		return nil, err
	}

	var static *bserve.StaticDirs
	if len(mappings) > 0 {
		static = &bserve.StaticDirs{}
		for _, m := range mappings {
			static.Add(m.Prefix, m.Dir)
		}
	}

	lim := env.serverLimits()
	return bserve.NewServerWith(params.Router, bserve.ServerConfig{
		KeepAlive:      lim.keepAlive,
		ReadChunkBytes: lim.readChunkBytes,
		MaxHeadBytes:   lim.maxHeadBytes,
		MaxBodyBytes:   lim.maxBodyBytes,
		Static:         static,
		Files:          params.Files,
		Errors:         bserve.ErrorPages{NotFoundFile: env.notFoundFile(), Files: params.Files},
		Observers: []bserve.Observer{
			newTracing(params.TracerProv, params.Propagator, env.healthPath()),
			newAccessLog(params.Logger),
		},
	}, newZapServeLogger(params.Logger)), nil
}

// provideFileSource reads static files from S3 when BS_STATIC_BUCKET is set
// and from the local filesystem otherwise.
func provideFileSource(env Environment, cfg aws.Config) bserve.FileSource {
	if bucket := env.staticBucket(); bucket != "" {
		return NewS3Source(s3.NewFromConfig(cfg), bucket)
	}

	return bserve.DirSource{}
}

// startServerHook registers lifecycle hooks for the server.
func startServerHook(lc fx.Lifecycle, env Environment, server *bserve.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			addr := fmt.Sprintf(":%d", env.port())

			var lcfg net.ListenConfig
			ln, err := lcfg.Listen(ctx, "tcp", addr)
			if err != nil {
				return errors.Wrapf(err, "listen on %s", addr)
			}

			logger.Info("starting server", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, bserve.ErrServerClosed) {
					logger.Error("server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return server.Shutdown(ctx)
		},
	})
}

func defaultHealthHandler(_ context.Context, w *bserve.Response, _ *bserve.Request) {
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	w.SendString("ok")
}
