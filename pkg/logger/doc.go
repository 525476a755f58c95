// Package logger builds the slog loggers used across billingd.
//
// New returns a *slog.Logger writing JSON by default or tinted text for local
// development. Config carries the environment driven settings and is applied
// with WithConfig:
//
//	log := logger.New(
//		logger.WithConfig(cfg.Log),
//		logger.WithContextValue("tenant", tenantKey{}),
//	)
//	logger.SetAsDefault(log)
//
// Context extractors add request scoped values to every record written with a
// *Context logging method. The attribute helpers (UserID, CustomerID,
// SubscriptionID, EventID, Error and friends) keep key names consistent
// between packages, and drop themselves when the value is empty.
//
// Discard returns a logger that writes nothing; components use it as their
// default when no logger is configured.
package logger
