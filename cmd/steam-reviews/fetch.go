package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/steam-reviews/internal/ui"
	"github.com/Sternrassler/steam-reviews/pkg/cache"
	"github.com/Sternrassler/steam-reviews/pkg/client"
	"github.com/Sternrassler/steam-reviews/pkg/export"
	"github.com/Sternrassler/steam-reviews/pkg/logging"
	"github.com/Sternrassler/steam-reviews/pkg/metrics"
	"github.com/Sternrassler/steam-reviews/pkg/pagination"
	"github.com/Sternrassler/steam-reviews/pkg/ratelimit"
)

const (
	defaultAppID      = "578080"
	defaultMaxReviews = 5000
	defaultDelay      = 500 * time.Millisecond

	// disabledPath turns off one export format.
	disabledPath = "none"
)

func newFetchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch reviews for an app and export them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runFetch(cmd)
		},
	}
	addFetchFlags(cmd)
	return cmd
}

func addFetchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("app-id", defaultAppID, "Steam app id")
	f.Int("max-reviews", defaultMaxReviews, "Stop after this many reviews")
	f.String("review-type", string(client.PolarityAll), "Review polarity: all, positive, negative")
	f.String("language", "english", "Review language")
	f.String("purchase-type", "all", "Purchase type filter: all, steam, non_steam_purchase")
	f.Duration("delay", defaultDelay, "Pause between page requests")
	f.Duration("timeout", client.DefaultTimeout, "Per-request timeout")
	f.String("csv", "", `CSV output path (default "<app-id>-reviews.csv", "none" to skip)`)
	f.String("parquet", "", `Parquet output path (default "<app-id>-reviews.parquet", "none" to skip)`)
	f.String("base-url", client.DefaultBaseURL, "Review listing endpoint")
	f.String("user-agent", "", `User-Agent header (default "steam-reviews/<version>")`)
	f.String("redis-addr", "", "Redis address for the page cache (empty disables caching)")
	f.Duration("cache-ttl", cache.DefaultTTL, "Page cache TTL")
	f.String("metrics-file", "", "Write Prometheus metrics to this file after the run")
	f.BoolP("verbose", "v", false, "Log per-page progress at info level")
}

// fetchConfig is the resolved configuration of one fetch run.
type fetchConfig struct {
	AppID        string
	MaxReviews   int
	Polarity     client.Polarity
	Language     string
	PurchaseType string
	Delay        time.Duration
	Timeout      time.Duration
	CSVPath      string
	ParquetPath  string
	BaseURL      string
	UserAgent    string
	RedisAddr    string
	CacheTTL     time.Duration
	MetricsFile  string
	Verbose      bool
}

func (a *app) fetchConfig() (fetchConfig, error) {
	v := a.v
	cfg := fetchConfig{
		AppID:        strings.TrimSpace(v.GetString("app-id")),
		MaxReviews:   v.GetInt("max-reviews"),
		Language:     v.GetString("language"),
		PurchaseType: v.GetString("purchase-type"),
		Delay:        v.GetDuration("delay"),
		Timeout:      v.GetDuration("timeout"),
		BaseURL:      v.GetString("base-url"),
		UserAgent:    v.GetString("user-agent"),
		RedisAddr:    v.GetString("redis-addr"),
		CacheTTL:     v.GetDuration("cache-ttl"),
		MetricsFile:  v.GetString("metrics-file"),
		Verbose:      v.GetBool("verbose"),
	}

	if cfg.AppID == "" {
		return cfg, errors.New("app id is required")
	}
	if cfg.MaxReviews < 0 {
		return cfg, fmt.Errorf("max reviews must not be negative (got %d)", cfg.MaxReviews)
	}
	if cfg.Delay < 0 {
		return cfg, fmt.Errorf("delay must not be negative (got %s)", cfg.Delay)
	}

	polarity, err := client.ParsePolarity(v.GetString("review-type"))
	if err != nil {
		return cfg, err
	}
	cfg.Polarity = polarity

	if cfg.UserAgent == "" {
		cfg.UserAgent = "steam-reviews/" + version
	}
	cfg.CSVPath = outputPath(v.GetString("csv"), cfg.AppID, "csv")
	cfg.ParquetPath = outputPath(v.GetString("parquet"), cfg.AppID, "parquet")
	return cfg, nil
}

// outputPath applies the per-app default name and the "none" switch.
func outputPath(flag, appID, ext string) string {
	switch flag {
	case "":
		return fmt.Sprintf("%s-reviews.%s", appID, ext)
	case disabledPath:
		return ""
	default:
		return flag
	}
}

func (a *app) runFetch(cmd *cobra.Command) error {
	cfg, err := a.fetchConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.NewLogger("cli")

	clientCfg := client.DefaultConfig(cfg.UserAgent)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.Timeout = cfg.Timeout
	if cfg.RedisAddr != "" {
		rc, pageCache := openCache(ctx, cfg, logger)
		if rc != nil {
			defer rc.Close()
			clientCfg.Cache = pageCache
			a.ui.VerboseLog("Page cache enabled at %s (ttl %s)", cfg.RedisAddr, cfg.CacheTTL)
		} else {
			a.ui.Warning("Redis at %s unavailable, fetching without page cache", cfg.RedisAddr)
		}
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	a.ui.Info("Fetching up to %d %s reviews for app %s", cfg.MaxReviews, cfg.Polarity, cfg.AppID)
	res := pagination.NewFetcher(c, ratelimit.Fixed(cfg.Delay)).Fetch(ctx, cfg.AppID, pagination.Options{
		MaxReviews:   cfg.MaxReviews,
		Polarity:     cfg.Polarity,
		Language:     cfg.Language,
		PurchaseType: cfg.PurchaseType,
		Verbose:      cfg.Verbose,
	})
	if res.Reason.Failed() {
		a.ui.Warning("Fetch stopped early (%s): %v", res.Reason, res.Err)
		if len(res.Records) > 0 {
			a.ui.Warning("Exporting %d partial results", len(res.Records))
		}
	}

	summary, exportErr := export.New(export.Options{
		CSVPath:     cfg.CSVPath,
		ParquetPath: cfg.ParquetPath,
	}).Export(res.Records)

	report := ui.Summary{
		AppID:    cfg.AppID,
		Reason:   string(res.Reason),
		Failed:   res.Reason.Failed(),
		Requests: res.Requests,
		Total:    summary.Total,
		Positive: summary.Positive,
		Negative: summary.Negative,
		Files:    summary.Files,
	}
	if res.QuerySummary != nil {
		report.UpstreamTotal = res.QuerySummary.TotalReviews
	}
	if err := a.ui.RenderSummary(report); err != nil {
		logger.Warn().Err(err).Msg("Failed to render summary")
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			a.ui.Warning("Metrics not written: %v", err)
		} else {
			a.ui.VerboseLog("Metrics written to %s", cfg.MetricsFile)
		}
	}

	if exportErr != nil {
		return fmt.Errorf("export reviews: %w", exportErr)
	}
	return nil
}

// openCache connects to Redis. A failed ping disables caching for the run
// instead of failing it.
func openCache(ctx context.Context, cfg fetchConfig, logger zerolog.Logger) (*redis.Client, *cache.Manager) {
	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, page cache disabled")
		rc.Close()
		return nil, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.CacheTTL).Msg("Connected to Redis")
	return rc, cache.NewManager(rc, cfg.CacheTTL)
}
