// Package rss implements the rss_collector source type: an HTTP feed fetch
// with Last-Modified change detection, parsed via gofeed.
package rss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/intelforge/collector-worker/internal/collector"
	"github.com/intelforge/collector-worker/internal/fetcher"
	"github.com/intelforge/collector-worker/internal/hash/sha256"
	"github.com/intelforge/collector-worker/internal/metrics"
	"github.com/intelforge/collector-worker/internal/ratelimit"
)

// Config controls feed fetch behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher collects RSS and Atom feeds.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	limiter *ratelimit.Limiter
	archive collector.Archive
	hasher  *sha256.Hasher
	clock   collector.Clock
	logger  *zap.Logger
}

// New builds a feed fetcher. The archive may be nil when payload archiving is
// disabled.
func New(
	cfg Config,
	limiter *ratelimit.Limiter,
	archive collector.Archive,
	clock collector.Clock,
	logger *zap.Logger,
) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = fetcher.DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:     cfg,
		client:  fetcher.NewHTTPClient(cfg.Timeout),
		limiter: limiter,
		archive: archive,
		hasher:  sha256.New(),
		clock:   clock,
		logger:  logger,
	}
}

// Collect fetches the feed. Scheduled runs skip feeds whose Last-Modified
// header predates the source's last attempt; manual runs always fetch.
func (f *Fetcher) Collect(ctx context.Context, source collector.Source, manual bool) collector.Outcome {
	return f.fetch(ctx, source, !manual, true)
}

// Preview fetches the feed without archiving the payload or consulting the
// freshness watermark.
func (f *Fetcher) Preview(ctx context.Context, source collector.Source) collector.Outcome {
	return f.fetch(ctx, source, false, false)
}

func (f *Fetcher) fetch(ctx context.Context, source collector.Source, useWatermark, archive bool) collector.Outcome {
	start := f.clock.Now()
	defer func() { metrics.ObserveFetch("rss", f.clock.Now().Sub(start)) }()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, source.URL); err != nil {
			return collector.Failure(fmt.Sprintf("rate limit wait: %v", err), false)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return collector.Failure(fmt.Sprintf("build feed request: %v", err), false)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return collector.Failure(fmt.Sprintf("feed request failed: %v", err), fetcher.RetryableError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return collector.Failure(
			fmt.Sprintf("feed request returned %d", resp.StatusCode),
			fetcher.RetryableStatus(resp.StatusCode),
		)
	}

	if useWatermark && !source.LastAttempted.IsZero() {
		if lastModified, parseErr := http.ParseTime(resp.Header.Get("Last-Modified")); parseErr == nil {
			if lastModified.Before(source.LastAttempted) {
				return collector.Skip(collector.SkipUnchanged)
			}
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetcher.MaxBodyBytes))
	if err != nil {
		return collector.Failure(fmt.Sprintf("read feed body: %v", err), fetcher.RetryableError(err))
	}

	if archive && f.archive != nil {
		path := fmt.Sprintf("sources/%s/%d.xml", source.ID, f.clock.Now().UnixNano())
		if _, archiveErr := f.archive.Put(ctx, path, resp.Header.Get("Content-Type"), body); archiveErr != nil {
			f.logger.Warn("payload not archived",
				zap.String("source_id", source.ID),
				zap.Error(archiveErr),
			)
		}
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return collector.Failure(fmt.Sprintf("feed parse failed: %v", err), false)
	}

	return collector.Success(f.normalize(feed, source))
}

func (f *Fetcher) normalize(feed *gofeed.Feed, source collector.Source) []collector.Item {
	items := make([]collector.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		id := entry.GUID
		if id == "" {
			id = entry.Link
		}
		var published time.Time
		switch {
		case entry.PublishedParsed != nil:
			published = *entry.PublishedParsed
		case entry.UpdatedParsed != nil:
			published = *entry.UpdatedParsed
		}
		var author string
		if len(entry.Authors) > 0 {
			author = entry.Authors[0].Name
		}
		content := entry.Content
		if content == "" {
			content = entry.Description
		}
		items = append(items, collector.Item{
			ID:        id,
			SourceID:  source.ID,
			Title:     entry.Title,
			Link:      entry.Link,
			Author:    author,
			Content:   content,
			Published: published,
			Hash:      f.hasher.Hash([]byte(id + entry.Title)),
		})
	}
	return items
}
