package ifind

import "fmt"

// AuthError means the refresh token itself was rejected. Fatal for the run:
// no retry can succeed with the same token.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("ifind auth: %s", e.Msg)
}

// QuotaExceededError means the account's monthly allotment for a quota-limited
// endpoint is exhausted. Recoverable: callers fall back to cached data and
// must not retry within the billing period.
type QuotaExceededError struct {
	Endpoint string
	Msg      string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("ifind %s: quota exceeded: %s", e.Endpoint, e.Msg)
}

// MarketClosedError is the expected response to a realtime request outside
// trading sessions. Recoverable: callers fall back to cache silently.
type MarketClosedError struct {
	Msg string
}

func (e *MarketClosedError) Error() string {
	return fmt.Sprintf("ifind: market closed: %s", e.Msg)
}

// EmptyResultError signals an empty-but-valid result, e.g. a date range with
// no trading days. Not a failure condition for callers.
type EmptyResultError struct {
	Endpoint string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("ifind %s: empty result", e.Endpoint)
}

// TransportError wraps a network or decode failure for one call.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ifind %s: transport: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// credentialExpiredError is internal: it triggers one transparent
// re-authentication before the call is retried exactly once.
type credentialExpiredError struct {
	Msg string
}

func (e *credentialExpiredError) Error() string {
	return fmt.Sprintf("ifind: credential expired: %s", e.Msg)
}
