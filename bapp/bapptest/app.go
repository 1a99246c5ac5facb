// Package bapptest runs bapp applications inside tests. [New] builds the graph
// of [bapp.NewApp] on [fxtest.App], so wiring errors fail the test right away.
// [SetBaseEnv] and [CallHandler] cover the environment and single handlers.
//
//	bapptest.SetBaseEnv(t, 18181).StaticDir("/assets", dir)
//	app := bapptest.New[bapp.BaseEnvironment](t,
//		func(rt *bserve.Router, run *bapp.Runtime[bapp.BaseEnvironment], s3c *s3.Client) error {
//			_, err := rt.Get("/buckets", listBuckets(s3c))
//			return err
//		},
//		bapp.WithAWSClient(func(cfg aws.Config) *s3.Client { return s3.NewFromConfig(cfg) }),
//	)
//	app.RequireStart()
//	t.Cleanup(app.RequireStop)
package bapptest

import (
	"testing"

	"github.com/advdv/bserve/bapp"
	"go.uber.org/fx/fxtest"
)

// App is a started-on-demand bapp application bound to a test.
type App struct {
	*fxtest.App
}

// New builds the application for routing and opts. It fails t when the graph
// cannot be constructed.
func New[E bapp.Environment](t testing.TB, routing any, opts ...bapp.Option) *App {
	return &App{App: fxtest.New(t, bapp.FxOptions[E](routing, opts...)...)}
}
