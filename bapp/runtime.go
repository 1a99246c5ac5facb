package bapp

import (
	"context"
	"net/http"

	"github.com/advdv/bserve"
	"github.com/carlmjohnson/requests"
)

// Runtime provides access to app-scoped dependencies.
// Inject this into handler constructors via fx instead of pulling from context.
//
// Example:
//
//	type Handlers struct {
//	    rt *bapp.Runtime[Env]
//	}
//
//	func (h *Handlers) Profile(ctx context.Context, w *bserve.Response, r *bserve.Request) bserve.Flow {
//	    url, _ := h.rt.Reverse("profile", r.Var("id"))
//	    token, err := h.rt.Secret(ctx, "api-credentials", "token")
//	    // ...
//	}
type Runtime[E Environment] struct {
	env       E
	router    *bserve.Router
	secrets   SecretReader
	transport http.RoundTripper
}

// RuntimeParams holds optional dependencies for Runtime.
type RuntimeParams struct {
	SecretReader SecretReader
	Transport    http.RoundTripper
}

// NewRuntime creates a new Runtime with the given dependencies.
func NewRuntime[E Environment](env E, router *bserve.Router, params RuntimeParams) *Runtime[E] {
	t := params.Transport
	if t == nil {
		t = http.DefaultTransport
	}

	return &Runtime[E]{env: env, router: router, secrets: params.SecretReader, transport: t}
}

// Env returns the environment configuration.
func (r *Runtime[E]) Env() E {
	return r.env
}

// Reverse returns the URL for a named route with the given parameters.
func (r *Runtime[E]) Reverse(name string, params ...string) (string, error) {
	return r.router.Reverse(name, params...)
}

// Secret retrieves a secret value from AWS Secrets Manager.
//
// If jsonPath is provided, the secret is parsed as JSON and the path is extracted
// using gjson syntax (e.g., "database.password", "api.keys.0").
//
//	password, err := h.rt.Secret(ctx, "my-db-credentials", "password")
func (r *Runtime[E]) Secret(ctx context.Context, secretID string, jsonPath ...string) (string, error) {
	return readSecret(ctx, r.secrets, secretID, jsonPath...)
}

// NewRequest starts an outbound request whose spans join the trace of the
// request being served.
//
//	err := h.rt.NewRequest().BaseURL("https://api.example.com").Path("/v1/items").ToJSON(&items).Fetch(ctx)
func (r *Runtime[E]) NewRequest() *requests.Builder {
	return newRequestBuilder(r.transport)
}
