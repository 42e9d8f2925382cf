package web

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Option customises the web service
type Option func(*Service)

// WithClient sets the HTTP client
func WithClient(client *http.Client) Option {
	return func(s *Service) {
		s.client = client
	}
}

// WithRateLimit limits requests per second across all workers sharing the service
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Service) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRetries sets the default number of attempts
func WithRetries(retries int) Option {
	return func(s *Service) {
		s.retries = retries
	}
}

// WithRetryDelay sets the pause between attempts
func WithRetryDelay(delay time.Duration) Option {
	return func(s *Service) {
		s.retryDelay = delay
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(s *Service) {
		s.userAgent = userAgent
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
