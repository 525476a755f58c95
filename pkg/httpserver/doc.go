// Package httpserver runs the billingd HTTP surface.
//
// Server wraps net/http with graceful shutdown driven by a context: Run
// serves until the context is canceled and then waits up to
// Config.ShutdownTimeout for in-flight webhook deliveries to finish.
//
// NewRouter builds the root chi router. It adds request ids, real client
// addresses, panic recovery and access logging, exposes liveness and
// readiness probes and mounts the API handler at "/".
//
//	srv := httpserver.New(cfg.HTTP, httpserver.WithLogger(log))
//	root := httpserver.NewRouter(api, log, cfg.HTTP.ProbeTimeout,
//		httpserver.Check{Name: "mongodb", Fn: mongo.Healthcheck(client)},
//		httpserver.Check{Name: "redis", Fn: redis.Healthcheck(rdb)},
//	)
//	if err := srv.Run(ctx, root); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
package httpserver
