package bapp_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/advdv/bserve"
	"github.com/advdv/bserve/bapp"
	"github.com/advdv/bserve/bapp/bapptest"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// TestEnv is a test environment with app-specific fields beyond BaseEnvironment.
type TestEnv struct {
	bapp.BaseEnvironment
	MainTableName string `env:"MAIN_TABLE_NAME,required"`
	BucketName    string `env:"BUCKET_NAME,required"`
}

// setTestEnvForTestEnv calls SetBaseEnv and sets the TestEnv specific vars.
func setTestEnvForTestEnv(t *testing.T, port int) *bapptest.Env {
	t.Helper()
	env := bapptest.SetBaseEnv(t, port)
	t.Setenv("MAIN_TABLE_NAME", "test-table")
	t.Setenv("BUCKET_NAME", "test-bucket")
	return env
}

// Handlers demonstrates direct fx injection of AWS clients.
type Handlers struct {
	rt     *bapp.Runtime[TestEnv]
	dynamo *dynamodb.Client
	s3     *s3.Client
	sqs    *sqs.Client
}

func NewHandlers(
	rt *bapp.Runtime[TestEnv],
	dynamo *dynamodb.Client,
	s3 *s3.Client,
	sqs *sqs.Client,
) *Handlers {
	return &Handlers{rt: rt, dynamo: dynamo, s3: s3, sqs: sqs}
}

func (h *Handlers) TestContext(ctx context.Context, w *bserve.Response, _ *bserve.Request) bserve.Flow {
	env := h.rt.Env()

	itemURL, err := h.rt.Reverse("get-item", "test-123")
	if err != nil {
		w.SetStatus(http.StatusInternalServerError)
		w.SendString("reverse failed: " + err.Error())
		return bserve.Stop
	}

	bapp.Span(ctx).AddEvent("context-test")
	bapp.Log(ctx).Info("testing context features")

	return sendJSON(w, http.StatusOK, map[string]any{
		"env": map[string]string{
			"table":        env.MainTableName,
			"bucket":       env.BucketName,
			"service_name": env.ServiceName,
		},
		"span_valid":   bapp.Span(ctx).SpanContext().IsValid(),
		"reversed_url": itemURL,
	})
}

func (h *Handlers) TestAWS(ctx context.Context, w *bserve.Response, _ *bserve.Request) bserve.Flow {
	bapp.Log(ctx).Info("testing AWS clients")

	return sendJSON(w, http.StatusOK, map[string]bool{
		"dynamo": h.dynamo != nil,
		"s3":     h.s3 != nil,
		"sqs":    h.sqs != nil,
	})
}

// Tag marks requests without ending the chain.
func (h *Handlers) Tag(_ context.Context, w *bserve.Response, _ *bserve.Request) bserve.Flow {
	w.Header().Set("x-tagged", "yes")
	return bserve.Continue
}

func (h *Handlers) CreateItem(ctx context.Context, w *bserve.Response, r *bserve.Request) bserve.Flow {
	var body map[string]any
	if err := json.Unmarshal(r.Body, &body); err != nil {
		w.SetStatus(http.StatusBadRequest)
		w.SendString(err.Error())
		return bserve.Stop
	}

	bapp.Span(ctx).AddEvent("creating-item")
	bapp.Log(ctx).Info("creating item")

	return sendJSON(w, http.StatusCreated, map[string]any{
		"id":    "item-123",
		"table": h.rt.Env().MainTableName,
		"data":  body,
	})
}

func (h *Handlers) GetItem(ctx context.Context, w *bserve.Response, r *bserve.Request) bserve.Flow {
	id := r.Var("id")
	selfURL, _ := h.rt.Reverse("get-item", id)

	bapp.Log(ctx).Info("getting item")

	return sendJSON(w, http.StatusOK, map[string]any{
		"id":       id,
		"table":    h.rt.Env().MainTableName,
		"self_url": selfURL,
	})
}

func sendJSON(w *bserve.Response, status int, v any) bserve.Flow {
	buf, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	w.SetStatus(status)
	w.Header().Set("content-type", "application/json")
	w.Send(buf)
	return bserve.Stop
}

// doGet performs an HTTP GET with the given context.
func doGet(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}

// doPost performs an HTTP POST with the given context and content type.
func doPost(ctx context.Context, client *http.Client, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return client.Do(req)
}
