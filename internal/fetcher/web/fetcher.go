// Package web implements the simple_web_collector source type: a single-page
// fetch via colly with goquery extraction and content-hash change detection.
package web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/intelforge/collector-worker/internal/collector"
	"github.com/intelforge/collector-worker/internal/fetcher"
	"github.com/intelforge/collector-worker/internal/hash/sha256"
	"github.com/intelforge/collector-worker/internal/metrics"
	"github.com/intelforge/collector-worker/internal/ratelimit"
)

// Renderer produces the rendered DOM for pages that assemble their content
// with scripts.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Config controls page fetch behavior.
type Config struct {
	UserAgent     string
	Timeout       time.Duration
	RenderEnabled bool
	// MinHTMLBytes is the static-body size below which a script-heavy page
	// is handed to the renderer. Zero selects the built-in threshold.
	MinHTMLBytes int
}

// Fetcher collects single web pages.
type Fetcher struct {
	cfg      Config
	base     *colly.Collector
	limiter  *ratelimit.Limiter
	archive  collector.Archive
	renderer Renderer
	hasher   *sha256.Hasher
	clock    collector.Clock
	logger   *zap.Logger
}

// New builds a page fetcher. The renderer and archive may be nil.
func New(
	cfg Config,
	limiter *ratelimit.Limiter,
	archive collector.Archive,
	renderer Renderer,
	clock collector.Clock,
	logger *zap.Logger,
) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = fetcher.DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := colly.NewCollector(colly.Async(false))
	base.IgnoreRobotsTxt = true
	return &Fetcher{
		cfg:      cfg,
		base:     base,
		limiter:  limiter,
		archive:  archive,
		renderer: renderer,
		hasher:   sha256.New(),
		clock:    clock,
		logger:   logger,
	}
}

// Collect fetches the page. Scheduled runs skip pages whose content hash
// matches the source's last known hash; manual runs always collect.
func (f *Fetcher) Collect(ctx context.Context, source collector.Source, manual bool) collector.Outcome {
	return f.fetch(ctx, source, !manual, true)
}

// Preview fetches the page without archiving or change detection.
func (f *Fetcher) Preview(ctx context.Context, source collector.Source) collector.Outcome {
	return f.fetch(ctx, source, false, false)
}

func (f *Fetcher) fetch(ctx context.Context, source collector.Source, useHash, archive bool) collector.Outcome {
	start := f.clock.Now()
	defer func() { metrics.ObserveFetch("web", f.clock.Now().Sub(start)) }()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, source.URL); err != nil {
			return collector.Failure(fmt.Sprintf("rate limit wait: %v", err), false)
		}
	}

	body, status, err := f.visit(ctx, source.URL)
	if err != nil {
		return collector.Failure(fmt.Sprintf("page fetch failed: %v", err), fetcher.RetryableError(err))
	}
	if status != http.StatusOK {
		return collector.Failure(
			fmt.Sprintf("page request returned %d", status),
			fetcher.RetryableStatus(status),
		)
	}

	if f.cfg.RenderEnabled && f.renderer != nil && shouldRender(body, f.cfg.MinHTMLBytes) {
		rendered, renderErr := f.renderer.Render(ctx, source.URL)
		if renderErr != nil {
			f.logger.Warn("headless render failed, using static body",
				zap.String("source_id", source.ID),
				zap.Error(renderErr),
			)
		} else {
			body = []byte(rendered)
		}
	}

	digest := f.hasher.Hash(body)
	if useHash && source.LastContentHash != "" && source.LastContentHash == digest {
		return collector.Skip(collector.SkipUnchanged)
	}

	if archive && f.archive != nil {
		path := fmt.Sprintf("sources/%s/%d.html", source.ID, f.clock.Now().UnixNano())
		if _, archiveErr := f.archive.Put(ctx, path, "text/html", body); archiveErr != nil {
			f.logger.Warn("payload not archived",
				zap.String("source_id", source.ID),
				zap.Error(archiveErr),
			)
		}
	}

	item, err := f.extract(body, source, digest)
	if err != nil {
		return collector.Failure(fmt.Sprintf("page extraction failed: %v", err), false)
	}
	return collector.Success([]collector.Item{item})
}

// visit runs one colly fetch, bridging colly's callback model back to a
// plain return and honoring ctx while the visit is in flight.
func (f *Fetcher) visit(ctx context.Context, url string) ([]byte, int, error) {
	c := f.base.Clone()
	c.UserAgent = f.cfg.UserAgent
	c.IgnoreRobotsTxt = f.base.IgnoreRobotsTxt
	c.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		status   int
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("page fetch canceled: %w", ctx.Err())
	case err := <-done:
		// A non-2xx status lands in both the visit error and OnError; let the
		// caller classify by status when one was observed.
		if status != 0 && status != http.StatusOK {
			return nil, status, nil
		}
		if err != nil {
			return nil, 0, err
		}
		if fetchErr != nil {
			return nil, 0, fetchErr
		}
		return body, status, nil
	}
}

func (f *Fetcher) extract(body []byte, source collector.Source, digest string) (collector.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return collector.Item{}, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		title = og
	}
	if title == "" {
		title = source.Name
	}

	var parts []string
	doc.Find("script, style, noscript").Remove()
	doc.Find("p, h1, h2, h3, li").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	return collector.Item{
		ID:        source.URL,
		SourceID:  source.ID,
		Title:     title,
		Link:      source.URL,
		Content:   strings.Join(parts, "\n"),
		Published: f.clock.Now(),
		Hash:      digest,
	}, nil
}
