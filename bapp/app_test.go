package bapp_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/advdv/bserve"
	"github.com/advdv/bserve/bapp"
	"github.com/advdv/bserve/bapp/bapptest"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestApp_ContextFeatures(t *testing.T) {
	setTestEnvForTestEnv(t, 18181).ServiceName("test-service").HealthPath("/ready")

	app := bapptest.New[TestEnv](t,
		func(rt *bserve.Router, h *Handlers) {
			rt.UseFunc(h.Tag)
			lo.Must(rt.HandleFunc(bserve.MethodGet, "/context", h.TestContext))
			lo.Must(rt.HandleFunc(bserve.MethodGet, "/aws", h.TestAWS))
			lo.Must(rt.HandleFunc(bserve.MethodPost, "/items", h.CreateItem))
			lo.Must(rt.HandleFunc(bserve.MethodGet, "/items/:id", h.GetItem, "get-item"))
		},
		bapp.WithAWSClient(func(cfg aws.Config) *dynamodb.Client { return dynamodb.NewFromConfig(cfg) }),
		bapp.WithAWSClient(func(cfg aws.Config) *s3.Client { return s3.NewFromConfig(cfg) }),
		bapp.WithAWSClient(func(cfg aws.Config) *sqs.Client { return sqs.NewFromConfig(cfg) }),
		bapp.WithFx(fx.Provide(NewHandlers)),
	)

	app.RequireStart()
	t.Cleanup(app.RequireStop)

	baseURL := "http://localhost:18181"
	client := &http.Client{Timeout: 5 * time.Second}
	ctx := context.Background()

	t.Run("Context_Log_Span_Env_Reverse", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/context")
		if err != nil {
			t.Fatalf("GET /context failed: %v", err)
		}
		defer resp.Body.Close()

		var result map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		env := result["env"].(map[string]any)
		if env["table"] != "test-table" {
			t.Errorf("expected table=test-table, got %v", env["table"])
		}
		if env["bucket"] != "test-bucket" {
			t.Errorf("expected bucket=test-bucket, got %v", env["bucket"])
		}
		if env["service_name"] != "test-service" {
			t.Errorf("expected service_name=test-service, got %v", env["service_name"])
		}
		if result["span_valid"] != true {
			t.Errorf("expected a valid span in the handler context")
		}
		if result["reversed_url"] != "/items/test-123" {
			t.Errorf("expected reversed_url=/items/test-123, got %v", result["reversed_url"])
		}
	})

	t.Run("AWS_Clients", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/aws")
		if err != nil {
			t.Fatalf("GET /aws failed: %v", err)
		}
		defer resp.Body.Close()

		var result map[string]bool
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if !result["dynamo"] {
			t.Error("dynamo client should not be nil")
		}
		if !result["s3"] {
			t.Error("s3 client should not be nil")
		}
		if !result["sqs"] {
			t.Error("sqs client should not be nil")
		}
	})

	t.Run("POST_with_body", func(t *testing.T) {
		body := strings.NewReader(`{"name": "Test", "value": 42}`)
		resp, err := doPost(ctx, client, baseURL+"/items", "application/json", body)
		if err != nil {
			t.Fatalf("POST /items failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
		}

		var result map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if result["table"] != "test-table" {
			t.Errorf("expected table=test-table, got %v", result["table"])
		}
		data := result["data"].(map[string]any)
		if data["name"] != "Test" {
			t.Errorf("expected data.name=Test, got %v", data["name"])
		}
	})

	t.Run("PathVars_Middleware_and_Reverse", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/items/item-456")
		if err != nil {
			t.Fatalf("GET /items/item-456 failed: %v", err)
		}
		defer resp.Body.Close()

		if got := resp.Header.Get("X-Tagged"); got != "yes" {
			t.Errorf("expected middleware header, got %q", got)
		}

		var result map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if result["id"] != "item-456" {
			t.Errorf("expected id=item-456, got %v", result["id"])
		}
		if result["self_url"] != "/items/item-456" {
			t.Errorf("expected self_url=/items/item-456, got %v", result["self_url"])
		}
	})

	t.Run("Health_Endpoint", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/ready")
		if err != nil {
			t.Fatalf("GET /ready failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "ok" {
			t.Errorf("expected body ok, got %q", body)
		}
	})

	t.Run("Not_Found", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/nope")
		if err != nil {
			t.Fatalf("GET /nope failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestApp_StaticAndNotFoundFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "public", "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public", "css", "site.css"), []byte("body{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "404.html"), []byte("<h1>gone</h1>"), 0o600))

	bapptest.SetBaseEnv(t, 18182).
		StaticDir("/assets", filepath.Join(dir, "public")).
		NotFoundFile(filepath.Join(dir, "404.html"))

	app := bapptest.New[bapp.BaseEnvironment](t, func(rt *bserve.Router) {
		lo.Must(rt.Get("/dynamic", bserve.Final(func(_ context.Context, w *bserve.Response, _ *bserve.Request) {
			w.SendString("dynamic")
		})))
	})

	app.RequireStart()
	t.Cleanup(app.RequireStop)

	client := &http.Client{Timeout: 5 * time.Second}
	ctx := context.Background()

	for _, tt := range []struct {
		path       string
		wantStatus int
		wantBody   string
		wantType   string
	}{
		{"/dynamic", http.StatusOK, "dynamic", ""},
		{"/assets/css/site.css", http.StatusOK, "body{}", "text/css"},
		{"/assets/css/missing.css", http.StatusNotFound, "<h1>gone</h1>", "text/html"},
		{"/elsewhere", http.StatusNotFound, "<h1>gone</h1>", "text/html"},
	} {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := doGet(ctx, client, "http://localhost:18182"+tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantBody, string(body))
			assert.Contains(t, resp.Header.Get("Content-Type"), tt.wantType)
		})
	}
}

func TestApp_CustomHealthHandler(t *testing.T) {
	bapptest.SetBaseEnv(t, 18183)

	app := bapptest.New[bapp.BaseEnvironment](t, func(*bserve.Router) {},
		bapp.WithHealthHandler(bserve.Final(func(_ context.Context, w *bserve.Response, _ *bserve.Request) {
			w.SetStatus(http.StatusServiceUnavailable)
			w.SendString("draining")
		})),
	)

	app.RequireStart()
	t.Cleanup(app.RequireStop)

	resp, err := doGet(context.Background(), &http.Client{Timeout: 5 * time.Second}, "http://localhost:18183/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "draining", string(body))
}

func TestApp_InRegionClient(t *testing.T) {
	bapptest.SetBaseEnv(t, 18184)

	var injected *bapp.InRegion[ssm.Client]
	app := bapptest.New[bapp.BaseEnvironment](t,
		func(_ *bserve.Router, c *bapp.InRegion[ssm.Client]) { injected = c },
		bapp.WithAWSClient(func(cfg aws.Config) *bapp.InRegion[ssm.Client] {
			return bapp.NewInRegion(ssm.NewFromConfig(cfg), cfg.Region)
		}, bapp.ForRegion("ap-southeast-1")),
	)

	app.RequireStart()
	t.Cleanup(app.RequireStop)

	require.NotNil(t, injected)
	require.NotNil(t, injected.Client)
	assert.Equal(t, "ap-southeast-1", injected.Region)
	assert.Equal(t, "ap-southeast-1", injected.Client.Options().Region)
}

func TestApp_InvalidEnvironment(t *testing.T) {
	t.Run("missing service name", func(t *testing.T) {
		bapptest.SetBaseEnv(t, 18185)
		t.Setenv("BS_SERVICE_NAME", "")
		require.NoError(t, os.Unsetenv("BS_SERVICE_NAME"))

		app := fx.New(bapp.FxOptions[bapp.BaseEnvironment](func(*bserve.Router) {})...)
		require.ErrorContains(t, app.Err(), "BS_SERVICE_NAME")
	})

	t.Run("malformed static dirs", func(t *testing.T) {
		bapptest.SetBaseEnv(t, 18185)
		t.Setenv("BS_STATIC_DIRS", "/assets")

		app := fx.New(bapp.FxOptions[bapp.BaseEnvironment](func(*bserve.Router) {})...)
		require.ErrorContains(t, app.Err(), "not of the form prefix=dir")
	})

	t.Run("routing error", func(t *testing.T) {
		bapptest.SetBaseEnv(t, 18185)

		app := fx.New(bapp.FxOptions[bapp.BaseEnvironment](func(rt *bserve.Router) error {
			_, err := rt.Get("/items/:", bserve.Final(func(context.Context, *bserve.Response, *bserve.Request) {}))
			return err
		})...)
		require.ErrorContains(t, app.Err(), `invalid path "/items/:"`)
	})
}

func TestApp_Start(t *testing.T) {
	bapptest.SetBaseEnv(t, 18186)

	app := bapp.NewApp[bapp.BaseEnvironment](func(rt *bserve.Router) {
		lo.Must(rt.Get("/ping", bserve.Final(func(_ context.Context, w *bserve.Response, _ *bserve.Request) {
			w.SendString("pong")
		})))
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Start(ctx) }()

	client := &http.Client{Timeout: 2 * time.Second}
	require.EventuallyWithT(t, func(c *assert.CollectT) {
		resp, err := doGet(context.Background(), client, "http://localhost:18186/ping")
		if !assert.NoError(c, err) {
			return
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(c, "pong", string(body))
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
