package common

const (
	// AuthorizationHeaderName carries the bearer access token on inbound requests.
	AuthorizationHeaderName = "Authorization"

	// ForwardedForHeaderName is consulted before the peer address when
	// recording where a signing request came from.
	ForwardedForHeaderName = "X-Forwarded-For"

	// RequestIDHeaderName is echoed back on every HTTP response.
	RequestIDHeaderName = "X-Request-Id"

	// UnknownValue substitutes missing client context in audit entries.
	UnknownValue = "Unknown"
)
