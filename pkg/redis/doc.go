// Package redis connects to Redis with startup retries and exposes a
// readiness probe. The client backs the distributed per-user write lock and
// the webhook event deduplication of the billing service.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	locker := billing.NewRedisLocker(client)
//	ready := redis.Healthcheck(client)
//
// # Error Handling
//
// Connect returns ErrEmptyConnectionURL or ErrFailedToParseRedisConnString for
// bad configuration and ErrRedisNotReady when the server never answered. The
// probe returns ErrHealthcheckFailed. All are matched with errors.Is.
package redis
