// Package testutil provides testing utilities for the review fetcher.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/steam-reviews/pkg/review"
)

// MockResponse defines one scripted response of the mock review API.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockReviewAPI is a scriptable stand-in for the appreviews endpoint.
// Responses are served in the order they were queued; once the queue is
// empty every request gets an empty successful page.
type MockReviewAPI struct {
	server *httptest.Server
	mu     sync.Mutex
	queue  []MockResponse

	requests []*url.URL
}

// NewMockReviewAPI creates and starts a mock review API server.
func NewMockReviewAPI() *MockReviewAPI {
	mock := &MockReviewAPI{}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		u := *r.URL
		mock.requests = append(mock.requests, &u)
		resp := NewPageResponse("", nil)
		if len(mock.queue) > 0 {
			resp = mock.queue[0]
			mock.queue = mock.queue[1:]
		}
		mock.mu.Unlock()

		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}))

	return mock
}

// URL returns the base URL to configure the client with.
func (m *MockReviewAPI) URL() string {
	return m.server.URL + "/appreviews/"
}

// Close shuts down the mock server.
func (m *MockReviewAPI) Close() {
	m.server.Close()
}

// Enqueue appends responses to the script.
func (m *MockReviewAPI) Enqueue(resps ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resps...)
}

// RequestCount returns the number of requests made to the server.
func (m *MockReviewAPI) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns the URLs of all received requests in arrival order.
func (m *MockReviewAPI) Requests() []*url.URL {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*url.URL, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset clears the script and the request log.
func (m *MockReviewAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
	m.requests = nil
}

// Reviews builds n distinct raw reviews whose ids start at first.
// Even ids are recommended.
func Reviews(first, n int) []review.Raw {
	out := make([]review.Raw, 0, n)
	for i := first; i < first+n; i++ {
		out = append(out, review.Raw{
			RecommendationID: fmt.Sprintf("%d", i),
			Author: review.Author{
				SteamID:         fmt.Sprintf("7656119%010d", i),
				PlaytimeForever: int64(i * 10),
			},
			Review:     fmt.Sprintf("  review number %d  ", i),
			VotedUp:    i%2 == 0,
			VotesUp:    int64(i),
			VotesFunny: int64(i % 3),
		})
	}
	return out
}

// NewPageResponse creates a successful page. The live API encodes success as 1.
func NewPageResponse(cursor string, reviews []review.Raw) MockResponse {
	if reviews == nil {
		reviews = []review.Raw{}
	}
	body := map[string]any{
		"success": 1,
		"reviews": reviews,
	}
	if cursor != "" {
		body["cursor"] = cursor
	}
	return jsonResponse(http.StatusOK, body)
}

// NewFirstPageResponse creates a successful first page carrying a query summary.
func NewFirstPageResponse(cursor string, reviews []review.Raw, totalPositive, totalNegative int) MockResponse {
	body := map[string]any{
		"success": 1,
		"cursor":  cursor,
		"reviews": reviews,
		"query_summary": map[string]any{
			"num_reviews":       len(reviews),
			"review_score":      7,
			"review_score_desc": "Mostly Positive",
			"total_positive":    totalPositive,
			"total_negative":    totalNegative,
			"total_reviews":     totalPositive + totalNegative,
		},
	}
	return jsonResponse(http.StatusOK, body)
}

// NewRejectedResponse creates a 200 response with success=false.
func NewRejectedResponse(message string) MockResponse {
	return jsonResponse(http.StatusOK, map[string]any{"success": false, "error": message})
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       "Too Many Requests",
	}
}

// NewMalformedResponse creates a 200 response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       "<html>maintenance</html>",
		Headers:    map[string]string{"Content-Type": "text/html"},
	}
}

func jsonResponse(status int, body any) MockResponse {
	data, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal mock body: %v", err))
	}
	return MockResponse{
		StatusCode: status,
		Body:       string(data),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// AppIDFromPath extracts the app id from a request path like /appreviews/578080.
func AppIDFromPath(path string) string {
	return strings.TrimPrefix(path, "/appreviews/")
}
