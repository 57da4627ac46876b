package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit limits requests per IP address to the given number per minute
// using a sliding window.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}

// LoginRateLimit throttles the login endpoint more aggressively than the
// general API, keyed by client IP.
func LoginRateLimit() func(http.Handler) http.Handler {
	return httprate.LimitByIP(10, time.Minute)
}
