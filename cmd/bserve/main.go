// Command bserve runs a small demo application: a greeting route behind a
// request id middleware, plus whatever static directories the environment maps.
package main

import (
	"context"
	"net/http"

	"github.com/advdv/bserve"
	"github.com/advdv/bserve/bapp"
	"github.com/advdv/bserve/internal/example"
	"go.uber.org/zap"
)

func main() {
	bapp.NewApp[bapp.BaseEnvironment](routing).Run()
}

func routing(rt *bserve.Router, run *bapp.Runtime[bapp.BaseEnvironment]) error {
	rt.Use(example.RequestID())

	if _, err := rt.Get("/hello/:name", bserve.Final(func(ctx context.Context, w *bserve.Response, r *bserve.Request) {
		bapp.Log(ctx).Info("greeting", zap.String("name", r.Var("name")), zap.String("request_id", example.ID(w)))

		w.Header().Set("content-type", "text/plain; charset=utf-8")
		w.SendString("hello, " + r.Var("name") + "\n")
	}), "hello"); err != nil {
		return err
	}

	_, err := rt.Get("/", bserve.Final(func(_ context.Context, w *bserve.Response, _ *bserve.Request) {
		loc, err := run.Reverse("hello", "world")
		if err != nil {
			w.SetStatus(http.StatusInternalServerError)
			w.Send(nil)
			return
		}

		w.SetStatus(http.StatusFound)
		w.Header().Set("location", loc)
		w.Send(nil)
	}))

	return err
}
