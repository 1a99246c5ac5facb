package bapp_test

import (
	"os"
	"testing"
	"time"

	"github.com/advdv/bserve/bapp"
	"github.com/advdv/bserve/bapp/bapptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("BS_SERVICE_NAME", "svc")

		env, err := bapp.ParseEnv[bapp.BaseEnvironment]()()
		require.NoError(t, err)

		assert.Equal(t, 8080, env.Port)
		assert.Equal(t, "svc", env.ServiceName)
		assert.Equal(t, "/health", env.HealthPath)
		assert.Equal(t, zapcore.InfoLevel, env.LogLevel)
		assert.Equal(t, "stdout", env.OtelExporter)
		assert.Equal(t, 5*time.Second, env.KeepAlive)
		assert.Equal(t, 1<<20, env.MaxHeadBytes)
		assert.Equal(t, int64(32<<20), env.MaxBodyBytes)
		assert.Equal(t, 4096, env.ReadChunkBytes)
		assert.Empty(t, env.StaticDirs)
	})

	t.Run("overrides", func(t *testing.T) {
		bapptest.SetBaseEnv(t, 9000).
			StaticDir("/assets", "./public").
			StaticDir("/", "./www").
			MaxBodyBytes(1024)
		t.Setenv("BS_LOG_LEVEL", "debug")

		env, err := bapp.ParseEnv[bapp.BaseEnvironment]()()
		require.NoError(t, err)

		assert.Equal(t, 9000, env.Port)
		assert.Equal(t, zapcore.DebugLevel, env.LogLevel)
		assert.Equal(t, time.Second, env.KeepAlive)
		assert.Equal(t, int64(1024), env.MaxBodyBytes)
		assert.Equal(t, []string{"/assets=./public", "/=./www"}, env.StaticDirs)
	})

	t.Run("custom environment", func(t *testing.T) {
		type appEnv struct {
			bapp.BaseEnvironment
			TableName string `env:"MAIN_TABLE_NAME,required"`
		}

		bapptest.SetBaseEnv(t, 9001)
		t.Setenv("MAIN_TABLE_NAME", "items")

		env, err := bapp.ParseEnv[appEnv]()()
		require.NoError(t, err)
		assert.Equal(t, "items", env.TableName)
		assert.Equal(t, "test", env.ServiceName)
	})

	t.Run("missing required", func(t *testing.T) {
		t.Setenv("BS_SERVICE_NAME", "")
		require.NoError(t, os.Unsetenv("BS_SERVICE_NAME"))

		_, err := bapp.ParseEnv[bapp.BaseEnvironment]()()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse environment")
	})

	t.Run("invalid log level", func(t *testing.T) {
		bapptest.SetBaseEnv(t, 9002)
		t.Setenv("BS_LOG_LEVEL", "loud")

		_, err := bapp.ParseEnv[bapp.BaseEnvironment]()()
		require.Error(t, err)
	})

	for _, bad := range []string{"/assets", "=./public", "/assets="} {
		t.Run("malformed static dir "+bad, func(t *testing.T) {
			bapptest.SetBaseEnv(t, 9003)
			t.Setenv("BS_STATIC_DIRS", bad)

			_, err := bapp.ParseEnv[bapp.BaseEnvironment]()()
			require.ErrorContains(t, err, "not of the form prefix=dir")
		})
	}
}
