package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Sternrassler/steam-reviews/internal/testutil"
	"github.com/Sternrassler/steam-reviews/pkg/client"
	"github.com/Sternrassler/steam-reviews/pkg/ratelimit"
	"github.com/Sternrassler/steam-reviews/pkg/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPages replays pages or errors in order and records every request.
type scriptedPages struct {
	steps    []step
	requests []client.PageRequest
}

type step struct {
	page *client.Page
	err  error
}

func (s *scriptedPages) FetchPage(_ context.Context, _ string, req client.PageRequest) (*client.Page, error) {
	s.requests = append(s.requests, req)
	if len(s.requests) > len(s.steps) {
		return &client.Page{Success: true}, nil
	}
	st := s.steps[len(s.requests)-1]
	return st.page, st.err
}

func page(cursor string, first, n int) step {
	return step{page: &client.Page{Success: true, Cursor: cursor, Reviews: testutil.Reviews(first, n)}}
}

func emptyPage() step {
	return step{page: &client.Page{Success: true, Cursor: "end"}}
}

func fail(class client.ErrorClass) step {
	return step{err: &client.APIError{ErrorClass: class, Message: string(class)}}
}

func opts(target int) Options {
	return Options{MaxReviews: target, Polarity: client.PolarityAll, Language: "english"}
}

func newTestFetcher(pages PageFetcher) *Fetcher {
	return NewFetcher(pages, ratelimit.None())
}

func TestFetch_TargetReachedMidSequence(t *testing.T) {
	pages := &scriptedPages{steps: []step{page("c1", 1, 2), page("c2", 3, 1), emptyPage()}}

	res := newTestFetcher(pages).Fetch(context.Background(), "1", opts(3))

	assert.Len(t, res.Records, 3)
	assert.Equal(t, ReasonTargetReached, res.Reason)
	assert.Equal(t, 2, res.Requests, "target hit after the second page, no further request")
	assert.NoError(t, res.Err)
}

func TestFetch_ExhaustedBeforeTarget(t *testing.T) {
	pages := &scriptedPages{steps: []step{page("c1", 1, 2), page("c2", 3, 1), emptyPage()}}

	res := newTestFetcher(pages).Fetch(context.Background(), "1", opts(10))

	assert.Len(t, res.Records, 3, "length equals what was available, not the target")
	assert.Equal(t, ReasonExhausted, res.Reason)
	assert.Equal(t, 3, res.Requests)
	assert.Len(t, pages.requests, 3, "no fourth request after the empty page")
}

func TestFetch_PageSizeAndCursor(t *testing.T) {
	pages := &scriptedPages{steps: []step{
		page("c1", 1, 100),
		page("c2", 101, 100),
		page("c3", 201, 50),
	}}

	res := newTestFetcher(pages).Fetch(context.Background(), "1", opts(250))

	require.Len(t, res.Records, 250)
	require.Len(t, pages.requests, 3)

	wantSizes := []int{100, 100, 50}
	wantCursors := []string{"*", "c1", "c2"}
	for i, req := range pages.requests {
		assert.Equal(t, wantSizes[i], req.NumPerPage, "request %d page size", i)
		assert.Equal(t, wantCursors[i], req.Cursor, "request %d cursor", i)
		assert.Equal(t, "english", req.Language)
	}
}

func TestFetch_StopsMidPage(t *testing.T) {
	pages := &scriptedPages{steps: []step{page("c1", 1, 5)}}

	res := newTestFetcher(pages).Fetch(context.Background(), "1", opts(3))

	require.Len(t, res.Records, 3)
	assert.Equal(t, "3", res.Records[2].ReviewID)
	assert.Equal(t, ReasonTargetReached, res.Reason)
}

func TestFetch_CursorAbsentEndsLoop(t *testing.T) {
	pages := &scriptedPages{steps: []step{page("c1", 1, 2), page("", 3, 2)}}

	res := newTestFetcher(pages).Fetch(context.Background(), "1", opts(100))

	assert.Len(t, res.Records, 4)
	assert.Equal(t, ReasonComplete, res.Reason)
	assert.Equal(t, 2, res.Requests)
}

func TestFetch_ZeroTarget(t *testing.T) {
	for _, target := range []int{0, -5} {
		t.Run(fmt.Sprint(target), func(t *testing.T) {
			pages := &scriptedPages{}

			res := newTestFetcher(pages).Fetch(context.Background(), "1", opts(target))

			assert.Empty(t, res.Records)
			assert.NotNil(t, res.Records)
			assert.Equal(t, 0, res.Requests)
			assert.Equal(t, ReasonTargetReached, res.Reason)
		})
	}
}

func TestFetch_FailuresKeepPartialResults(t *testing.T) {
	tests := []struct {
		name   string
		class  client.ErrorClass
		reason Reason
	}{
		{name: "network", class: client.ErrorClassNetwork, reason: ReasonTransportFailed},
		{name: "http status", class: client.ErrorClassServer, reason: ReasonTransportFailed},
		{name: "client status", class: client.ErrorClassClient, reason: ReasonTransportFailed},
		{name: "api rejected", class: client.ErrorClassRejected, reason: ReasonAPIRejected},
		{name: "malformed", class: client.ErrorClassDecode, reason: ReasonMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := &scriptedPages{steps: []step{page("c1", 1, 2), fail(tt.class), page("c2", 3, 2)}}

			res := newTestFetcher(pages).Fetch(context.Background(), "1", opts(10))

			assert.Len(t, res.Records, 2)
			assert.Equal(t, tt.reason, res.Reason)
			assert.True(t, res.Reason.Failed())
			assert.Equal(t, tt.class, client.ClassOf(res.Err))
			assert.Equal(t, 2, res.Requests, "no retry after a failure")
		})
	}
}

func TestFetch_SentimentAssigned(t *testing.T) {
	pages := &scriptedPages{steps: []step{page("", 1, 6)}}

	res := newTestFetcher(pages).Fetch(context.Background(), "1", opts(6))

	require.Len(t, res.Records, 6)
	for _, r := range res.Records {
		assert.Equal(t, review.SentimentOf(r.Recommended), r.Sentiment, "record %s", r.ReviewID)
	}
}

func TestFetch_NeverExceedsTarget(t *testing.T) {
	for target := 0; target <= 12; target++ {
		pages := &scriptedPages{steps: []step{page("a", 1, 5), page("b", 6, 5), page("c", 11, 5)}}

		res := newTestFetcher(pages).Fetch(context.Background(), "1", opts(target))

		if len(res.Records) > target {
			t.Errorf("target %d: got %d records", target, len(res.Records))
		}
	}
}

func TestFetch_QuerySummaryFromFirstPage(t *testing.T) {
	summary := &client.QuerySummary{TotalReviews: 42, TotalPositive: 40, TotalNegative: 2}
	first := page("c1", 1, 1)
	first.page.QuerySummary = summary
	pages := &scriptedPages{steps: []step{first, page("", 2, 1)}}

	res := newTestFetcher(pages).Fetch(context.Background(), "1", opts(5))

	assert.Same(t, summary, res.QuerySummary)
}

func TestFetch_DelayBetweenPagesOnly(t *testing.T) {
	var attempts []int
	delay := ratelimit.StrategyFunc(func(attempt int) time.Duration {
		attempts = append(attempts, attempt)
		return 0
	})
	pages := &scriptedPages{steps: []step{page("c1", 1, 1), page("c2", 2, 1), page("", 3, 1)}}

	NewFetcher(pages, delay).Fetch(context.Background(), "1", opts(10))

	assert.Equal(t, []int{1, 2}, attempts, "no pause after the final page")
}

func TestFetch_NoPauseAfterCachedPage(t *testing.T) {
	var attempts []int
	delay := ratelimit.StrategyFunc(func(attempt int) time.Duration {
		attempts = append(attempts, attempt)
		return 0
	})
	cached := page("c1", 1, 1)
	cached.page.FromCache = true
	pages := &scriptedPages{steps: []step{cached, page("c2", 2, 1), page("", 3, 1)}}

	res := NewFetcher(pages, delay).Fetch(context.Background(), "1", opts(10))

	assert.Len(t, res.Records, 3)
	assert.Equal(t, []int{2}, attempts, "only the page that reached the API is followed by a pause")
}

func TestFetch_CancelledAfterCachedPage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cached := page("c1", 1, 2)
	cached.page.FromCache = true
	pages := &cancellingPages{scriptedPages: scriptedPages{steps: []step{cached, page("c2", 3, 2)}}, cancel: cancel}

	res := newTestFetcher(pages).Fetch(ctx, "1", opts(10))

	assert.Len(t, res.Records, 2)
	assert.Equal(t, ReasonCancelled, res.Reason)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Len(t, pages.requests, 1)
}

// cancellingPages cancels the session right after serving its first page.
type cancellingPages struct {
	scriptedPages
	cancel context.CancelFunc
}

func (c *cancellingPages) FetchPage(ctx context.Context, appID string, req client.PageRequest) (*client.Page, error) {
	p, err := c.scriptedPages.FetchPage(ctx, appID, req)
	c.cancel()
	return p, err
}

func TestFetch_CancelledDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	delay := ratelimit.StrategyFunc(func(int) time.Duration {
		cancel()
		return time.Hour
	})
	pages := &scriptedPages{steps: []step{page("c1", 1, 2), page("c2", 3, 2)}}

	res := NewFetcher(pages, delay).Fetch(ctx, "1", opts(10))

	assert.Len(t, res.Records, 2)
	assert.Equal(t, ReasonCancelled, res.Reason)
	assert.True(t, errors.Is(res.Err, context.Canceled))
	assert.Equal(t, "Positive", res.Records[1].Sentiment, "partial records are still labelled")
}

// The remaining tests drive the real client against the mock API.

func newMockFetcher(t *testing.T, mock *testutil.MockReviewAPI) *Fetcher {
	t.Helper()
	cfg := client.DefaultConfig("steam-reviews-test/1.0")
	cfg.BaseURL = mock.URL()
	c, err := client.New(cfg)
	require.NoError(t, err)
	return NewFetcher(c, ratelimit.None())
}

func TestFetch_HTTP_ExhaustionScenario(t *testing.T) {
	mock := testutil.NewMockReviewAPI()
	defer mock.Close()
	mock.Enqueue(
		testutil.NewPageResponse("c1", testutil.Reviews(1, 2)),
		testutil.NewPageResponse("c2", testutil.Reviews(3, 1)),
		testutil.NewPageResponse("c3", nil),
	)

	res := newMockFetcher(t, mock).Fetch(context.Background(), "578080", opts(10))

	assert.Len(t, res.Records, 3)
	assert.Equal(t, ReasonExhausted, res.Reason)
	assert.Equal(t, 3, mock.RequestCount())

	reqs := mock.Requests()
	assert.Equal(t, "/appreviews/578080", reqs[0].Path)
	assert.Equal(t, "*", reqs[0].Query().Get("cursor"))
	assert.Equal(t, "10", reqs[0].Query().Get("num_per_page"))
	assert.Equal(t, "c1", reqs[1].Query().Get("cursor"))
	assert.Equal(t, "8", reqs[1].Query().Get("num_per_page"))
	assert.Equal(t, "c2", reqs[2].Query().Get("cursor"))
	assert.Equal(t, "7", reqs[2].Query().Get("num_per_page"))
}

func TestFetch_HTTP_InvalidAppID(t *testing.T) {
	mock := testutil.NewMockReviewAPI()
	defer mock.Close()
	mock.Enqueue(testutil.NewRejectedResponse("invalid appid"))

	res := newMockFetcher(t, mock).Fetch(context.Background(), "0", opts(10))

	assert.Empty(t, res.Records)
	assert.Equal(t, ReasonAPIRejected, res.Reason)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "invalid appid")
	assert.Equal(t, 1, mock.RequestCount())
}

func TestFetch_HTTP_ServerErrorAfterFirstPage(t *testing.T) {
	mock := testutil.NewMockReviewAPI()
	defer mock.Close()
	mock.Enqueue(
		testutil.NewPageResponse("c1", testutil.Reviews(1, 4)),
		testutil.NewServerErrorResponse(),
	)

	res := newMockFetcher(t, mock).Fetch(context.Background(), "1", opts(10))

	assert.Len(t, res.Records, 4)
	assert.Equal(t, ReasonTransportFailed, res.Reason)
	assert.Equal(t, 2, mock.RequestCount())
}

func TestFetch_HTTP_MalformedBody(t *testing.T) {
	mock := testutil.NewMockReviewAPI()
	defer mock.Close()
	mock.Enqueue(testutil.NewMalformedResponse())

	res := newMockFetcher(t, mock).Fetch(context.Background(), "1", opts(10))

	assert.Empty(t, res.Records)
	assert.Equal(t, ReasonMalformedResponse, res.Reason)
}
