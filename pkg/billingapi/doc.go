// Package billingapi exposes the billing service over HTTP: the provider
// webhook endpoint, per-user membership lookups and the reporting endpoints.
//
//	h := billingapi.NewHandler(svc, billingapi.WithLogger(log))
//	r := chi.NewRouter()
//	r.Mount("/", h.Handle())
//
// Responses use a JSON envelope with either a "data" or an "error" member.
// Billing error kinds map to status codes: not found is 404, invalid input and
// missing active periods are 400, everything else is 500.
//
// The webhook endpoint answers 400 when the signature does not verify and 500
// when the failure is transient, so the provider redelivers. Events that can
// never succeed (unknown customer, malformed payload) are logged and answered
// with 200 to stop redelivery.
package billingapi
