package listing

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/batcher"
	"github.com/viant/batcher/service/action/web"
	"go.uber.org/zap/zaptest"
)

func searchServer(t *testing.T, pages int, failPage int) (*httptest.Server, *atomic.Int32) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "vintage camera", r.URL.Query().Get("_nkw"))
		page, err := strconv.Atoi(r.URL.Query().Get("_pgn"))
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if page == failPage {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if page > pages {
			_, _ = w.Write([]byte(`<html><body><h1 class="count-heading">0 results</h1></body></html>`))
			return
		}
		var body strings.Builder
		body.WriteString("<html><body><ul>")
		for i := 0; i < 2; i++ {
			fmt.Fprintf(&body, `<li id="results-listing-%d-%d"><a class="item__link" href="http://example.com/%d/%d"><h3 class="item__title">Item %d %d</h3></a><span class="s-item__price">$%d.00</span></li>`,
				page, i, page, i, page, i, page)
		}
		body.WriteString("</ul></body></html>")
		_, _ = w.Write([]byte(body.String()))
	}))
	return server, &requests
}

func newTestBatcher(t *testing.T, workers int) *batcher.Batcher {
	b, err := batcher.New(workers,
		batcher.WithLogger(zaptest.NewLogger(t)),
		batcher.WithWebOptions(web.WithRateLimit(1000, 100)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func TestScraper_Run(t *testing.T) {
	ctx := context.Background()
	server, requests := searchServer(t, 7, -1)
	defer server.Close()

	fs := afs.New()
	writer := NewCSVWriter(fs, "mem://localhost/scraper-test/out.csv")
	scraper := NewScraper(newTestBatcher(t, 3), writer, WithLogger(zaptest.NewLogger(t)), WithConfig(Config{
		URLTemplate: server.URL + "/sch/i.html?_nkw=%s&_sacat=0&_pgn=%d",
		MaxPages:    100,
		BatchSize:   3,
		Retries:     1,
	}))

	summary, err := scraper.Run(ctx, "vintage camera")
	require.NoError(t, err)
	assert.True(t, summary.Exhausted)
	assert.Equal(t, 8, summary.Pages, "seven pages with listings plus the empty one")
	assert.Equal(t, 14, summary.Listings)
	assert.EqualValues(t, 9, requests.Load(), "pages are fetched in whole batches")

	data, err := fs.DownloadWithURL(ctx, writer.URL)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 14)
	assert.Equal(t, []string{"http://example.com/1/0", "Item 1 0", "$1.00"}, records[0])
	assert.Equal(t, []string{"http://example.com/7/1", "Item 7 1", "$7.00"}, records[13])
	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1][0] < records[i][0], "rows keep page order")
	}
}

func TestScraper_MaxPages(t *testing.T) {
	server, requests := searchServer(t, 100, -1)
	defer server.Close()

	writer := NewCSVWriter(afs.New(), "mem://localhost/scraper-test/max.csv")
	scraper := NewScraper(newTestBatcher(t, 4), writer, WithConfig(Config{
		URLTemplate: server.URL + "/sch/i.html?_nkw=%s&_pgn=%d",
		MaxPages:    5,
		BatchSize:   4,
		Retries:     1,
	}))
	summary, err := scraper.Run(context.Background(), "vintage camera")
	require.NoError(t, err)
	assert.False(t, summary.Exhausted)
	assert.Equal(t, 5, summary.Pages)
	assert.EqualValues(t, 5, requests.Load())
	assert.Equal(t, 10, writer.Rows())
}

func TestScraper_FailedPage(t *testing.T) {
	ctx := context.Background()
	server, _ := searchServer(t, 10, 3)
	defer server.Close()

	fs := afs.New()
	writer := NewCSVWriter(fs, "mem://localhost/scraper-test/failed.csv")
	scraper := NewScraper(newTestBatcher(t, 2), writer, WithConfig(Config{
		URLTemplate: server.URL + "/sch/i.html?_nkw=%s&_pgn=%d",
		MaxPages:    10,
		BatchSize:   2,
		Retries:     2,
	}))
	summary, err := scraper.Run(ctx, "vintage camera")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch page 2")
	assert.Equal(t, 2, summary.Pages)
	assert.Equal(t, 4, summary.Listings)

	data, err := fs.DownloadWithURL(ctx, writer.URL)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"), "rows scraped before the failure are kept")
}
