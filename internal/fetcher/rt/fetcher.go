// Package rt implements the rt_collector source type: a Request Tracker
// REST2 ticket search over token-authenticated JSON.
package rt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/intelforge/collector-worker/internal/collector"
	"github.com/intelforge/collector-worker/internal/fetcher"
	"github.com/intelforge/collector-worker/internal/hash/sha256"
	"github.com/intelforge/collector-worker/internal/metrics"
	"github.com/intelforge/collector-worker/internal/ratelimit"
)

// defaultQuery selects every non-resolved ticket when the source does not
// carry its own TicketSQL.
const defaultQuery = "Status != 'resolved'"

// Config controls ticket search behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher collects tickets from a Request Tracker instance.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	limiter *ratelimit.Limiter
	archive collector.Archive
	hasher  *sha256.Hasher
	clock   collector.Clock
	logger  *zap.Logger
}

// New builds a ticket fetcher. The archive may be nil.
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

// Collect searches the tracker and normalizes matching tickets.
func (f *Fetcher) Collect(ctx context.Context, source collector.Source, _ bool) collector.Outcome {
	return f.fetch(ctx, source, true)
}

// Preview runs the same search without archiving the payload.
func (f *Fetcher) Preview(ctx context.Context, source collector.Source) collector.Outcome {
	return f.fetch(ctx, source, false)
}

func (f *Fetcher) fetch(ctx context.Context, source collector.Source, archive bool) collector.Outcome {
	start := f.clock.Now()
	defer func() { metrics.ObserveFetch("rt", f.clock.Now().Sub(start)) }()

	token := source.Param("token", "")
	if token == "" {
		return collector.Failure("rt token is not configured", false)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, source.URL); err != nil {
			return collector.Failure(fmt.Sprintf("rate limit wait: %v", err), false)
		}
	}

	searchURL := fmt.Sprintf("%s/REST/2.0/tickets?query=%s&fields=Subject,Created,Creator",
		strings.TrimRight(source.URL, "/"),
		url.QueryEscape(source.Param("query", defaultQuery)),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return collector.Failure(fmt.Sprintf("build ticket search request: %v", err), false)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "token "+token)

	resp, err := f.client.Do(req)
	if err != nil {
		return collector.Failure(fmt.Sprintf("ticket search failed: %v", err), fetcher.RetryableError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return collector.Failure(fmt.Sprintf("rt authentication failed (%d)", resp.StatusCode), false)
	case resp.StatusCode != http.StatusOK:
		return collector.Failure(
			fmt.Sprintf("ticket search returned %d", resp.StatusCode),
			fetcher.RetryableStatus(resp.StatusCode),
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetcher.MaxBodyBytes))
	if err != nil {
		return collector.Failure(fmt.Sprintf("read ticket search body: %v", err), fetcher.RetryableError(err))
	}

	if archive && f.archive != nil {
		path := fmt.Sprintf("sources/%s/%d.json", source.ID, f.clock.Now().UnixNano())
		if _, archiveErr := f.archive.Put(ctx, path, "application/json", body); archiveErr != nil {
			f.logger.Warn("payload not archived",
				zap.String("source_id", source.ID),
				zap.Error(archiveErr),
			)
		}
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return collector.Failure(fmt.Sprintf("ticket search parse failed: %v", err), false)
	}

	return collector.Success(f.normalize(result, source))
}

type searchResponse struct {
	Items []ticket `json:"items"`
	Total int      `json:"total"`
}

type ticket struct {
	ID      json.Number `json:"id"`
	Subject string      `json:"Subject"`
	Created string      `json:"Created"`
	Creator creatorRef  `json:"Creator"`
}

type creatorRef struct {
	ID string `json:"id"`
}

func (f *Fetcher) normalize(result searchResponse, source collector.Source) []collector.Item {
	base := strings.TrimRight(source.URL, "/")
	items := make([]collector.Item, 0, len(result.Items))
	for _, t := range result.Items {
		id := t.ID.String()
		var created time.Time
		if t.Created != "" {
			if parsed, err := time.Parse(time.RFC3339, t.Created); err == nil {
				created = parsed
			}
		}
		items = append(items, collector.Item{
			ID:        id,
			SourceID:  source.ID,
			Title:     t.Subject,
			Link:      fmt.Sprintf("%s/Ticket/Display.html?id=%s", base, id),
			Author:    t.Creator.ID,
			Published: created,
			Hash:      f.hasher.Hash([]byte(id + t.Subject)),
		})
	}
	return items
}
