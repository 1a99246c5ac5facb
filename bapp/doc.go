// Package bapp provides a batteries-included application around a bserve server.
//
// # Overview
//
// bapp handles the boilerplate of running a bserve server as a service: environment parsing,
// structured logging, OpenTelemetry tracing, AWS SDK clients, static files from disk or S3 and
// graceful shutdown. A complete application is created in a single call:
//
//	bapp.NewApp[Env](func(rt *bserve.Router, h *Handlers) {
//	    rt.UseFunc(h.Authenticate)
//	    rt.HandleFunc(bserve.MethodGet, "/items/:id", h.GetItem, "get-item")
//	},
//	    bapp.WithAWSClient(dynamodb.NewFromConfig),
//	    bapp.WithFx(fx.Provide(NewHandlers)),
//	).Run()
//
// # Environment Configuration
//
// Define your environment by embedding [BaseEnvironment]:
//
//	type Env struct {
//	    bapp.BaseEnvironment
//	    MainTableName string `env:"MAIN_TABLE_NAME,required"`
//	}
//
// BaseEnvironment reads the following variables:
//
//	| Variable             | Required | Default  | Description                                         |
//	|----------------------|----------|----------|-----------------------------------------------------|
//	| BS_SERVICE_NAME      | Yes      | -        | Service name for logging and tracing                |
//	| BS_PORT              | No       | 8080     | Port the server listens on                          |
//	| BS_HEALTH_PATH       | No       | /health  | Path of the health route, excluded from tracing     |
//	| BS_LOG_LEVEL         | No       | info     | Log level (debug, info, warn, error)                |
//	| BS_OTEL_EXPORTER     | No       | stdout   | Trace exporter: "stdout" or "xrayudp"               |
//	| BS_KEEP_ALIVE        | No       | 5s       | Idle timeout of persistent connections              |
//	| BS_MAX_HEAD_BYTES    | No       | 1048576  | Largest accepted request head                       |
//	| BS_MAX_BODY_BYTES    | No       | 33554432 | Largest accepted request body                       |
//	| BS_READ_CHUNK_BYTES  | No       | 4096     | Size of each read while assembling the head         |
//	| BS_STATIC_DIRS       | No       | -        | Comma separated prefix=dir pairs                    |
//	| BS_STATIC_BUCKET     | No       | -        | Serve the static dirs as key prefixes of this bucket |
//	| BS_NOT_FOUND_FILE    | No       | -        | File served as the body of 404 responses            |
//	| AWS_REGION           | No       | -        | Region of the AWS clients                           |
//
// # Handlers and Context
//
// Handlers receive a context that carries the request span and a trace-correlated logger:
//
//	func (h *Handlers) GetItem(ctx context.Context, w *bserve.Response, r *bserve.Request) bserve.Flow {
//	    bapp.Log(ctx).Info("loading item", zap.String("id", r.Var("id")))
//	    bapp.Span(ctx).AddEvent("loaded")
//	    // ...
//	    return bserve.Stop
//	}
//
// # Runtime
//
// [Runtime] provides access to app-scoped dependencies and should be injected into handler
// constructors via fx:
//   - [Runtime.Env] returns the typed environment configuration
//   - [Runtime.Reverse] generates URLs for named routes
//   - [Runtime.Secret] reads cached secrets from AWS Secrets Manager, optionally a gjson path
//   - [Runtime.NewRequest] starts an outbound request that joins the current trace
//
// # Testing
//
// The bapptest package builds the same dependency graph on top of fxtest.
package bapp
