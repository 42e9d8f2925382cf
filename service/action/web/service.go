// Package web provides the HTTP retrieval function used by scraping jobs.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/viant/batcher/model/types"
	"github.com/viant/batcher/tracing"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Name service name
const Name = "web"

// DefaultUserAgent is sent with every request unless overridden
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/73.0.3683.103 Safari/537.36"

// Page represents a retrieved document, Tag is an opaque caller value (for example a page index)
type Page struct {
	URL    string      `json:"url"`
	Tag    interface{} `json:"tag,omitempty"`
	Status int         `json:"status"`
	Body   string      `json:"body"`
}

// AsPage converts fetch result into a page, it accepts values that went through a serialised queue
func AsPage(value interface{}) (*Page, error) {
	switch actual := value.(type) {
	case *Page:
		return actual, nil
	case Page:
		return &actual, nil
	case map[string]interface{}:
		ret := &Page{}
		if err := types.Convert(actual, ret); err != nil {
			return nil, fmt.Errorf("invalid page: %w", err)
		}
		return ret, nil
	case nil:
		return nil, fmt.Errorf("page was nil")
	}
	return nil, fmt.Errorf("invalid page %T", value)
}

// Service fetches web documents with retries
type Service struct {
	client     *http.Client
	limiter    *rate.Limiter
	userAgent  string
	retries    int
	retryDelay time.Duration
	logger     *zap.Logger
}

// New creates a web service
func New(options ...Option) *Service {
	ret := &Service{
		client:     &http.Client{Timeout: 30 * time.Second},
		userAgent:  DefaultUserAgent,
		retries:    5,
		retryDelay: 0,
		logger:     zap.NewNop(),
	}
	for _, opt := range options {
		opt(ret)
	}
	ret.logger = ret.logger.With(zap.String("component", "web"))
	return ret
}

// Name returns the service name
func (s *Service) Name() string {
	return Name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name: "fetch",
			Description: `Retrieves a URL with GET, retrying while the status is not 200.
Arguments: url, tag (optional, returned with the page). Keyword: retries.`,
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Func, error) {
	switch strings.ToLower(name) {
	case "fetch":
		return s.fetch, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) fetch(ctx context.Context, args *types.Args) (interface{}, error) {
	URL, err := args.String(0)
	if err != nil {
		return nil, err
	}
	options := fetchOptions{Retries: s.retries}
	if err = args.DecodeKwargs(&options); err != nil {
		return nil, fmt.Errorf("invalid fetch options: %w", err)
	}
	return s.Fetch(ctx, URL, args.At(1), options.Retries)
}

// fetchOptions are the keyword arguments of fetch
type fetchOptions struct {
	Retries int `json:"retries"`
}

// Fetch retrieves URL, it makes up to retries attempts
func (s *Service) Fetch(ctx context.Context, URL string, tag interface{}, retries int) (*Page, error) {
	if retries <= 0 {
		retries = 1
	}
	lastStatus := 0
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if attempt > 1 && s.retryDelay > 0 {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		s.logger.Debug("retrieving", zap.String("url", URL), zap.Int("attempt", attempt))
		page, err := s.get(ctx, URL)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("request failed", zap.String("url", URL), zap.Error(err))
			continue
		}
		if page.Status == http.StatusOK {
			page.Tag = tag
			return page, nil
		}
		lastStatus = page.Status
		s.logger.Warn("unexpected status", zap.String("url", URL), zap.Int("status", page.Status))
	}
	if lastStatus == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to fetch %v after %d attempts: %w", URL, retries, lastErr)
	}
	return nil, fmt.Errorf("failed to fetch %v after %d attempts: last status %d", URL, retries, lastStatus)
}

func (s *Service) get(ctx context.Context, URL string) (page *Page, err error) {
	if s.limiter != nil {
		if err = s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	ctx, span := tracing.StartSpan(ctx, "web.fetch", tracing.KindClient)
	span.WithAttributes(map[string]string{"http.url": URL})
	defer func() {
		if page != nil {
			span.WithHTTPStatus(page.Status)
			tracing.EndSpan(span, nil)
			return
		}
		tracing.EndSpan(span, err)
	}()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, URL, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("User-Agent", s.userAgent)
	response, err := s.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %v: %w", URL, err)
	}
	return &Page{URL: URL, Status: response.StatusCode, Body: string(body)}, nil
}
