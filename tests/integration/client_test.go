//go:build integration

package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/steam-reviews/internal/testutil"
	"github.com/Sternrassler/steam-reviews/pkg/cache"
	"github.com/Sternrassler/steam-reviews/pkg/client"
	"github.com/Sternrassler/steam-reviews/pkg/export"
	"github.com/Sternrassler/steam-reviews/pkg/pagination"
	"github.com/Sternrassler/steam-reviews/pkg/ratelimit"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newFetcher(t *testing.T, mock *testutil.MockReviewAPI, pageCache *cache.Manager) *pagination.Fetcher {
	t.Helper()

	cfg := client.DefaultConfig("steam-reviews-integration/1.0")
	cfg.BaseURL = mock.URL()
	cfg.Cache = pageCache
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return pagination.NewFetcher(c, ratelimit.Fixed(10*time.Millisecond))
}

// TestFetchAndExport runs the full flow: pages → records → CSV and Parquet.
func TestFetchAndExport(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockReviewAPI()
	defer mock.Close()
	mock.Enqueue(
		testutil.NewFirstPageResponse("c1", testutil.Reviews(1, 100), 900, 100),
		testutil.NewPageResponse("c2", testutil.Reviews(101, 100)),
		testutil.NewPageResponse("c3", testutil.Reviews(201, 100)),
	)

	ctx := context.Background()
	fetcher := newFetcher(t, mock, cache.NewManager(redisClient, time.Minute))
	res := fetcher.Fetch(ctx, "578080", pagination.Options{MaxReviews: 250, Language: "english"})

	if res.Reason != pagination.ReasonTargetReached {
		t.Fatalf("Expected target_reached, got %s (%v)", res.Reason, res.Err)
	}
	if len(res.Records) != 250 {
		t.Fatalf("Expected 250 records, got %d", len(res.Records))
	}
	if res.QuerySummary == nil || res.QuerySummary.TotalReviews != 1000 {
		t.Errorf("Expected query summary with 1000 reviews, got %+v", res.QuerySummary)
	}

	dir := t.TempDir()
	opts := export.Options{
		CSVPath:     filepath.Join(dir, "578080-reviews.csv"),
		ParquetPath: filepath.Join(dir, "578080-reviews.parquet"),
	}
	summary, err := export.New(opts).Export(res.Records)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if summary.Positive+summary.Negative != 250 {
		t.Errorf("Expected tally of 250, got %+v", summary)
	}

	fromParquet, err := export.ReadParquet(opts.ParquetPath)
	if err != nil {
		t.Fatalf("ReadParquet failed: %v", err)
	}
	fromCSV, err := export.ReadCSV(opts.CSVPath)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(fromParquet) != 250 || len(fromCSV) != 250 {
		t.Fatalf("Expected 250 rows in both files, got csv=%d parquet=%d", len(fromCSV), len(fromParquet))
	}
	for i := range fromCSV {
		if fromCSV[i] != fromParquet[i] {
			t.Fatalf("Row %d differs: csv=%+v parquet=%+v", i, fromCSV[i], fromParquet[i])
		}
	}
}

// TestCacheHit verifies that a repeated session is served from Redis.
func TestCacheHit(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockReviewAPI()
	defer mock.Close()
	mock.Enqueue(
		testutil.NewPageResponse("c1", testutil.Reviews(1, 5)),
		testutil.NewPageResponse("", testutil.Reviews(6, 5)),
	)

	ctx := context.Background()
	pageCache := cache.NewManager(redisClient, time.Minute)
	opts := pagination.Options{MaxReviews: 50, Language: "english"}

	first := newFetcher(t, mock, pageCache).Fetch(ctx, "578080", opts)
	if first.Reason != pagination.ReasonComplete || len(first.Records) != 10 {
		t.Fatalf("First run: got %d records, reason %s", len(first.Records), first.Reason)
	}
	if mock.RequestCount() != 2 {
		t.Fatalf("Expected 2 upstream requests, got %d", mock.RequestCount())
	}

	second := newFetcher(t, mock, pageCache).Fetch(ctx, "578080", opts)
	if mock.RequestCount() != 2 {
		t.Errorf("Expected second run to be served from cache, upstream requests: %d", mock.RequestCount())
	}
	if len(second.Records) != len(first.Records) {
		t.Errorf("Expected %d cached records, got %d", len(first.Records), len(second.Records))
	}

	keys, err := redisClient.Keys(ctx, cache.KeyPrefix+":578080:*").Result()
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Expected 2 cached pages, got %d", len(keys))
	}
}

// TestFailuresNotCached verifies that a rejected page is fetched again next run.
func TestFailuresNotCached(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockReviewAPI()
	defer mock.Close()
	mock.Enqueue(
		testutil.NewRejectedResponse("invalid appid"),
		testutil.NewRejectedResponse("invalid appid"),
	)

	ctx := context.Background()
	pageCache := cache.NewManager(redisClient, time.Minute)
	opts := pagination.Options{MaxReviews: 10}

	for run := 1; run <= 2; run++ {
		res := newFetcher(t, mock, pageCache).Fetch(ctx, "0", opts)
		if res.Reason != pagination.ReasonAPIRejected {
			t.Fatalf("Run %d: expected api_rejected, got %s", run, res.Reason)
		}
	}
	if mock.RequestCount() != 2 {
		t.Errorf("Expected both runs to reach upstream, got %d requests", mock.RequestCount())
	}
}

// TestServerErrorKeepsPartialResults verifies that a 5xx mid-session ends it
// without retry and without losing earlier pages.
func TestServerErrorKeepsPartialResults(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockReviewAPI()
	defer mock.Close()
	mock.Enqueue(
		testutil.NewPageResponse("c1", testutil.Reviews(1, 20)),
		testutil.NewRateLimitResponse(),
	)

	res := newFetcher(t, mock, cache.NewManager(redisClient, time.Minute)).
		Fetch(context.Background(), "578080", pagination.Options{MaxReviews: 100})

	if res.Reason != pagination.ReasonTransportFailed {
		t.Fatalf("Expected transport_failed, got %s", res.Reason)
	}
	if client.ClassOf(res.Err) != client.ErrorClassClient {
		t.Errorf("Expected client error class for 429, got %s", client.ClassOf(res.Err))
	}
	if len(res.Records) != 20 {
		t.Errorf("Expected 20 partial records, got %d", len(res.Records))
	}
	if mock.RequestCount() != 2 {
		t.Errorf("Expected no retry, got %d requests", mock.RequestCount())
	}
}
