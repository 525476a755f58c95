// Package billing keeps a per-user ledger of paid subscription periods fed by
// payment provider webhooks and derives membership status and revenue reports
// from it.
//
// # Architecture
//
// A webhook travels through three stages:
//
//	EventVerifier -> Normalizer -> Ledger
//
// The EventVerifier (StripeVerifier) authenticates the payload and unwraps the
// envelope into a ProviderEvent. The Normalizer maps the provider customer to an
// internal user through a UserResolver, attaches product metadata from a
// ProductCatalog (StripeCatalog or PaddleCatalog) and produces a validated
// SubscriptionEvent. The Ledger applies it to the user's Record: a paid
// invoice appends a new Period, a subscription update rewrites the plan of the
// user's active period.
//
// Records are stored one per user through the Store interface. MongoStore is the
// production backend, MemoryStore serves tests and single-process setups. Every
// write runs under a per-user Locker and is saved with an optimistic version
// check, so concurrent webhooks for the same user never lose a period.
//
// Reports read the same data. ResolveStatus labels a user New, Active or Lost;
// the members reports count users across the store; TurnoverByPeriod and
// GrowthRate bucket paid amounts into months, quarters, halves or years.
//
// # Usage
//
//	store := billing.NewMongoStore(db.Collection(billing.DefaultCollection))
//	verifier, _ := billing.NewStripeVerifier(cfg.Stripe.WebhookSecret)
//	catalog, _ := billing.NewStripeCatalog(cfg.Stripe.APIKey)
//
//	svc := billing.NewService(store,
//	    billing.WithEventVerifier(verifier),
//	    billing.WithNormalizer(billing.NewNormalizer(resolver, catalog)),
//	    billing.WithLocker(billing.NewRedisLocker(rdb)),
//	    billing.WithDeduplicator(billing.NewRedisDeduplicator(rdb, 72*time.Hour)),
//	    billing.WithLogger(log),
//	)
//
//	if err := svc.HandleWebhook(ctx, body, r.Header.Get("Stripe-Signature")); err != nil {
//	    if billing.IsRetriable(err) {
//	        // answer 5xx so the provider redelivers
//	    }
//	}
//
// # Error Handling
//
// Errors are grouped into kinds matched with errors.Is: ErrNotFound,
// ErrInvalidInput and ErrNoActivePeriod. Anything that failed while
// interpreting a webhook is additionally joined with ErrEventProcessing.
// IsRetriable tells transient failures (storage, locks, provider API) from
// final ones.
package billing
