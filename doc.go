// Package bserve is a small HTTP/1.x server whose routing runs every matching handler in the order
// it was registered, in the style of express.
//
// # Overview
//
// A [Router] holds handlers that were registered for a method and a path pattern, for a pattern
// regardless of the method, or for every request (middleware). All of them draw their index from
// one counter, so the order of registration is the order of execution:
//
//	rt := bserve.NewRouter()
//	rt.Use(bserve.Next(func(ctx context.Context, w *bserve.Response, r *bserve.Request) {
//	    w.Header().Set("x-served-by", "bserve")
//	}))
//	rt.Get("/users/:id", bserve.Final(func(ctx context.Context, w *bserve.Response, r *bserve.Request) {
//	    w.SendString("user " + r.Var("id"))
//	}), "get-user")
//
//	srv := bserve.NewServer(rt)
//	err := srv.ListenAndServe(":8080")
//
// # Patterns
//
// Patterns are slash separated. A segment starting with a colon binds a variable, a segment that
// is exactly "*" matches any single segment. Empty segments are ignored, so "/a//b/" equals "/a/b".
// A request path may match many patterns at once, all of them run.
//
// # Handlers
//
// A [Handler] returns a [Flow]. [Continue] passes the request on to the next matching handler and
// [Stop] ends dispatching. Dispatching also ends once the [Response] has a body. When no handler
// produced a body the server tries the configured [StaticDirs], and answers 404 when no file was
// found either. A handler that wants an empty response calls [Response.Send] with nil.
//
// A handler that panics only fails its own request: the response is replaced with a 500 and the
// connection stays usable.
//
// # Composition
//
// [Router.Append] merges another router as if its handlers were registered after the ones
// already present, which allows building feature routers separately:
//
//	api := bserve.NewRouter()
//	api.Get("/api/health", health)
//
//	rt.Append(api)
//
// # Named Routes and URL Reversing
//
// Patterns can be named at registration and turned back into paths with [Router.Reverse]:
//
//	url, err := rt.Reverse("get-user", "123") // "/users/123"
//
// # Server
//
// The [Server] reads requests of any fragmentation from the connection, keeps HTTP/1.1 connections
// open unless asked to close, honors keep-alive for HTTP/1.0 and writes every response in one
// piece. Bodies are only accepted with a Content-Length. See [ServerConfig] for the limits.
package bserve
