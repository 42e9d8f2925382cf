package listing

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/viant/batcher"
	"github.com/viant/batcher/model/job"
	"github.com/viant/batcher/service/action/web"
	"go.uber.org/zap"
)

// DefaultURLTemplate is formatted with the escaped query and the 1-based page number
const DefaultURLTemplate = "http://www.ebay.com/sch/i.html?_nkw=%s&_sacat=0&_pgn=%d"

// Config represents scraper configuration
type Config struct {
	URLTemplate string
	MaxPages    int
	BatchSize   int
	Retries     int
}

// DefaultConfig returns the default scraper configuration
func DefaultConfig() Config {
	return Config{
		URLTemplate: DefaultURLTemplate,
		MaxPages:    1000,
		BatchSize:   32,
		Retries:     5,
	}
}

// Summary describes a finished scrape
type Summary struct {
	Query    string
	Pages    int
	Listings int
	// Exhausted is true when a page without listings ended the scrape
	Exhausted bool
}

// Option customises the scraper
type Option func(s *Scraper)

// WithConfig sets the scraper configuration
func WithConfig(config Config) Option {
	return func(s *Scraper) {
		s.config = config
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scraper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scraper pages through search results: every batch of pages is fetched
// concurrently by the batcher and processed in page order.
type Scraper struct {
	batcher *batcher.Batcher
	writer  *CSVWriter
	config  Config
	logger  *zap.Logger
}

// Run scrapes query until a page has no listings or MaxPages pages were fetched.
// Rows collected before an error are still flushed to the writer destination.
func (s *Scraper) Run(ctx context.Context, query string) (summary *Summary, err error) {
	summary = &Summary{Query: query}
	defer func() {
		if flushErr := s.writer.Flush(ctx); flushErr != nil && err == nil {
			err = flushErr
		}
	}()

	for page := 0; page < s.config.MaxPages; {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		size := s.config.BatchSize
		if remaining := s.config.MaxPages - page; size > remaining {
			size = remaining
		}
		for i := 0; i < size; i++ {
			s.batcher.EnqueueJob(job.Named("web/fetch", s.pageURL(query, page+i), page+i).WithKwarg("retries", s.config.Retries))
		}
		results, err := s.batcher.Process(ctx)
		if err != nil {
			return summary, fmt.Errorf("failed to process pages %d-%d: %w", page, page+size-1, err)
		}
		for i, result := range results {
			index := page + i
			if result.Err != nil {
				s.logger.Error("failed to fetch page", zap.Int("page", index), zap.Error(result.Err))
				return summary, fmt.Errorf("failed to fetch page %d: %w", index, result.Err)
			}
			aPage, err := web.AsPage(result.Value)
			if err != nil {
				return summary, fmt.Errorf("page %d: %w", index, err)
			}
			listings, err := Extract(strings.NewReader(aPage.Body))
			if err != nil {
				return summary, fmt.Errorf("page %d: %w", index, err)
			}
			summary.Pages++
			if len(listings) == 0 {
				s.logger.Info("no more items found", zap.Int("page", index))
				summary.Exhausted = true
				return summary, nil
			}
			if err := s.writer.Write(listings...); err != nil {
				return summary, err
			}
			summary.Listings += len(listings)
			s.logger.Debug("page scraped", zap.Int("page", index), zap.Int("listings", len(listings)))
		}
		page += size
	}
	return summary, nil
}

func (s *Scraper) pageURL(query string, page int) string {
	return fmt.Sprintf(s.config.URLTemplate, url.QueryEscape(query), page+1)
}

// NewScraper creates a scraper feeding b and writing rows to writer
func NewScraper(b *batcher.Batcher, writer *CSVWriter, options ...Option) *Scraper {
	ret := &Scraper{batcher: b, writer: writer, config: DefaultConfig(), logger: zap.NewNop()}
	for _, option := range options {
		option(ret)
	}
	if ret.config.BatchSize <= 0 {
		ret.config.BatchSize = b.Workers()
	}
	if ret.config.URLTemplate == "" {
		ret.config.URLTemplate = DefaultURLTemplate
	}
	return ret
}
