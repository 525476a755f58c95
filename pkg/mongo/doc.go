// Package mongo connects to MongoDB with environment driven configuration and
// startup retries, and exposes a readiness probe.
//
// # Usage
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	client, db, err := mongo.ConnectDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Disconnect(context.Background())
//
//	store := billing.NewMongoStore(db.Collection(billing.DefaultCollection))
//	ready := mongo.Healthcheck(client)
//
// # Error Handling
//
// Connect returns ErrFailedToConnectToMongo joined with the last driver error
// once every attempt failed, or with ctx.Err() if ctx was cancelled while
// waiting between attempts. The probe returns ErrHealthcheckFailed.
package mongo
