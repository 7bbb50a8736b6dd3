package pagination

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/steam-reviews/pkg/client"
	"github.com/Sternrassler/steam-reviews/pkg/ratelimit"
	"github.com/Sternrassler/steam-reviews/pkg/review"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steam_pages_fetched_total",
		Help: "Review pages received, cached or not",
	})

	reviewsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steam_reviews_fetched_total",
		Help: "Reviews flattened into records",
	})

	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steam_fetch_sessions_total",
		Help: "Completed fetch sessions by terminal reason",
	}, []string{"reason"})
)

// Reason says why a fetch session ended.
type Reason string

const (
	// ReasonComplete: the API returned no cursor for a next page.
	ReasonComplete Reason = "complete"
	// ReasonTargetReached: MaxReviews records were collected.
	ReasonTargetReached Reason = "target_reached"
	// ReasonExhausted: a page came back with no reviews.
	ReasonExhausted Reason = "exhausted"
	// ReasonTransportFailed: network error, timeout or non-2xx status.
	ReasonTransportFailed Reason = "transport_failed"
	// ReasonAPIRejected: the API answered with success=false.
	ReasonAPIRejected Reason = "api_rejected"
	// ReasonMalformedResponse: the body was not review JSON.
	ReasonMalformedResponse Reason = "malformed_response"
	// ReasonCancelled: the context ended the session.
	ReasonCancelled Reason = "cancelled"
)

// Failed reports whether the session ended on an error.
func (r Reason) Failed() bool {
	switch r {
	case ReasonTransportFailed, ReasonAPIRejected, ReasonMalformedResponse, ReasonCancelled:
		return true
	default:
		return false
	}
}

// PageFetcher is the interface the review client implements for single-page fetching.
type PageFetcher interface {
	FetchPage(ctx context.Context, appID string, req client.PageRequest) (*client.Page, error)
}

// Options configure one fetch session.
type Options struct {
	// MaxReviews is the target count; the result never holds more.
	MaxReviews int
	// Polarity filters favorable, unfavorable or all reviews.
	Polarity client.Polarity
	// Language is the review language code, e.g. "english".
	Language string
	// PurchaseType filters by how the product was obtained; "all" by default.
	PurchaseType string
	// Verbose promotes per-page progress from debug to info.
	Verbose bool
}

// Result is the outcome of a fetch session.
type Result struct {
	// Records in page-arrival then in-page order, sentiment assigned.
	Records []review.Record
	// Reason the loop ended.
	Reason Reason
	// Err is the terminal error when Reason.Failed().
	Err error
	// Requests counts pages requested, including the failing one.
	Requests int
	// QuerySummary from the first page, if the API sent one.
	QuerySummary *client.QuerySummary
}

// Fetcher runs cursor-driven fetch sessions.
type Fetcher struct {
	pages  PageFetcher
	pacer  *ratelimit.Pacer
	logger zerolog.Logger
}

// NewFetcher creates a fetcher pausing between pages per delay.
func NewFetcher(pages PageFetcher, delay ratelimit.Strategy) *Fetcher {
	logger := log.With().Str("component", "fetcher").Logger()
	return &Fetcher{
		pages:  pages,
		pacer:  ratelimit.NewPacer(delay, logger),
		logger: logger,
	}
}

// Fetch collects up to opts.MaxReviews reviews for appID.
//
// Expected failures end the session without discarding records; they are
// reported through Result.Reason and Result.Err, never as a panic or a lost
// collection.
func (f *Fetcher) Fetch(ctx context.Context, appID string, opts Options) Result {
	start := time.Now()
	target := opts.MaxReviews
	if target < 0 {
		target = 0
	}

	f.logger.Info().
		Str("app_id", appID).
		Int("target", target).
		Str("review_type", string(opts.Polarity)).
		Str("language", opts.Language).
		Msg("Fetching reviews")

	var res Result
	records := make([]review.Record, 0, min(target, client.MaxPageSize))
	cursor := client.InitialCursor

	for len(records) < target && cursor != "" {
		req := client.PageRequest{
			Cursor:       cursor,
			Polarity:     opts.Polarity,
			Language:     opts.Language,
			PurchaseType: opts.PurchaseType,
			NumPerPage:   min(client.MaxPageSize, target-len(records)),
		}

		res.Requests++
		page, err := f.pages.FetchPage(ctx, appID, req)
		if err != nil {
			res.Reason, res.Err = classify(ctx, err)
			f.logger.Warn().
				Err(err).
				Str("reason", string(res.Reason)).
				Int("fetched", len(records)).
				Msg("Stopping fetch, keeping partial results")
			break
		}
		pagesFetchedTotal.Inc()

		if res.QuerySummary == nil && page.QuerySummary != nil {
			res.QuerySummary = page.QuerySummary
			f.logger.Info().
				Int("total_reviews", page.QuerySummary.TotalReviews).
				Int("total_positive", page.QuerySummary.TotalPositive).
				Int("total_negative", page.QuerySummary.TotalNegative).
				Str("score", page.QuerySummary.ReviewScoreDesc).
				Msg("Upstream review totals")
		}

		if len(page.Reviews) == 0 {
			res.Reason = ReasonExhausted
			f.progress(opts.Verbose).Int("fetched", len(records)).Msg("No more reviews available")
			break
		}

		before := len(records)
		for _, raw := range page.Reviews {
			records = append(records, review.Flatten(raw))
			if len(records) >= target {
				break
			}
		}
		reviewsFetchedTotal.Add(float64(len(records) - before))

		cursor = page.Cursor
		f.progress(opts.Verbose).
			Int("fetched", len(records)).
			Int("page_size", len(page.Reviews)).
			Bool("from_cache", page.FromCache).
			Msg("Fetched reviews so far")

		if len(records) >= target || cursor == "" {
			break
		}
		// Cached pages sent no request; only cancellation is checked.
		if page.FromCache {
			err = ctx.Err()
		} else {
			err = f.pacer.Pause(ctx, res.Requests)
		}
		if err != nil {
			res.Reason, res.Err = ReasonCancelled, err
			break
		}
	}

	if res.Reason == "" {
		if len(records) >= target {
			res.Reason = ReasonTargetReached
		} else {
			res.Reason = ReasonComplete
		}
	}

	review.LabelSentiment(records)
	res.Records = records
	sessionsTotal.WithLabelValues(string(res.Reason)).Inc()

	f.logger.Info().
		Str("app_id", appID).
		Int("records", len(records)).
		Int("requests", res.Requests).
		Str("reason", string(res.Reason)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return res
}

func (f *Fetcher) progress(verbose bool) *zerolog.Event {
	if verbose {
		return f.logger.Info()
	}
	return f.logger.Debug()
}

// classify maps a page error to the session's terminal reason.
func classify(ctx context.Context, err error) (Reason, error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return ReasonCancelled, err
	}
	switch client.ClassOf(err) {
	case client.ErrorClassRejected:
		return ReasonAPIRejected, err
	case client.ErrorClassDecode:
		return ReasonMalformedResponse, err
	default:
		return ReasonTransportFailed, err
	}
}
