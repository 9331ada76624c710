package server

// Header names and values
const (
	HeaderAPIKey       = "X-API-Key"
	HeaderForwardedFor = "X-Forwarded-For"

	HeaderContentTypeOptions = "X-Content-Type-Options"
	HeaderFrameOptions       = "X-Frame-Options"
	HeaderReferrerPolicy     = "Referrer-Policy"

	HeaderValueNoSniff              = "nosniff"
	HeaderValueSameOrigin           = "SAMEORIGIN"
	HeaderValueReferrerStrictOrigin = "strict-origin-when-cross-origin"
)

// Error messages
const (
	ErrMsgUnauthorized    = "Unauthorized"
	ErrMsgTooManyRequests = "Too many requests"
)

// PublicPaths do not require an API key.
var PublicPaths = []string{
	"/healthz",
	"/readyz",
	"/version",
	"/metrics",
}

// Rate limiting window
const (
	rateLimitWindowRequests = 1000
	rateLimitWindowMinutes  = 5
)

// Request body size limit
const maxRequestBodyBytes = 1 << 20 // 1MB
