package bapptest

import (
	"os"
	"strconv"
	"strings"
	"testing"
)

// Env provides a chainable builder for setting [bapp.BaseEnvironment] env vars
// via t.Setenv. Create one with [SetBaseEnv].
type Env struct {
	t testing.TB
}

// SetBaseEnv sets the [bapp.BaseEnvironment] env vars to test defaults.
// Port is required because each test must use a unique port to avoid collisions.
//
// Defaults:
//   - BS_SERVICE_NAME: "test"
//   - BS_HEALTH_PATH: "/health"
//   - BS_KEEP_ALIVE: "1s"
//   - AWS_REGION: "us-east-1"
//   - OTEL_SDK_DISABLED: "true"
//   - AWS_ACCESS_KEY_ID: "test"
//   - AWS_SECRET_ACCESS_KEY: "test"
func SetBaseEnv(t testing.TB, port int) *Env {
	t.Helper()
	t.Setenv("BS_PORT", strconv.Itoa(port))
	t.Setenv("BS_SERVICE_NAME", "test")
	t.Setenv("BS_HEALTH_PATH", "/health")
	t.Setenv("BS_KEEP_ALIVE", "1s")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("OTEL_SDK_DISABLED", "true")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	return &Env{t: t}
}

// ServiceName overrides BS_SERVICE_NAME.
func (e *Env) ServiceName(name string) *Env {
	e.t.Helper()
	e.t.Setenv("BS_SERVICE_NAME", name)
	return e
}

// HealthPath overrides BS_HEALTH_PATH.
func (e *Env) HealthPath(path string) *Env {
	e.t.Helper()
	e.t.Setenv("BS_HEALTH_PATH", path)
	return e
}

// StaticDir appends a prefix=dir pair to BS_STATIC_DIRS.
func (e *Env) StaticDir(prefix, dir string) *Env {
	e.t.Helper()

	var entries []string
	if cur := os.Getenv("BS_STATIC_DIRS"); cur != "" {
		entries = strings.Split(cur, ",")
	}
	e.t.Setenv("BS_STATIC_DIRS", strings.Join(append(entries, prefix+"="+dir), ","))
	return e
}

// NotFoundFile sets BS_NOT_FOUND_FILE.
func (e *Env) NotFoundFile(path string) *Env {
	e.t.Helper()
	e.t.Setenv("BS_NOT_FOUND_FILE", path)
	return e
}

// MaxBodyBytes overrides BS_MAX_BODY_BYTES.
func (e *Env) MaxBodyBytes(n int64) *Env {
	e.t.Helper()
	e.t.Setenv("BS_MAX_BODY_BYTES", strconv.FormatInt(n, 10))
	return e
}
