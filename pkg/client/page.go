package client

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/steam-reviews/pkg/review"
)

// DayRangeAllTime is the day_range sentinel meaning "no time window".
const DayRangeAllTime = "9223372036854775807"

// MaxPageSize is the largest num_per_page the API honours.
const MaxPageSize = 100

// InitialCursor starts a listing from the first page.
const InitialCursor = "*"

// Polarity restricts results to favorable, unfavorable or all reviews.
type Polarity string

const (
	PolarityAll      Polarity = "all"
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// ParsePolarity validates a polarity name. Matching is case-insensitive and
// an empty string means PolarityAll.
func ParsePolarity(s string) (Polarity, error) {
	switch p := Polarity(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolarityAll, nil
	case PolarityAll, PolarityPositive, PolarityNegative:
		return p, nil
	default:
		return "", fmt.Errorf("unknown review type %q (want all, positive or negative)", s)
	}
}

// param returns the query value, mapping anything unknown to "all".
func (p Polarity) param() string {
	switch p {
	case PolarityPositive, PolarityNegative:
		return string(p)
	default:
		return string(PolarityAll)
	}
}

// PageRequest holds the parameters of one listing request.
type PageRequest struct {
	Cursor       string
	Polarity     Polarity
	Language     string
	PurchaseType string
	NumPerPage   int
}

// Query renders the request as appreviews query parameters.
func (r PageRequest) Query() url.Values {
	cursor := r.Cursor
	if cursor == "" {
		cursor = InitialCursor
	}
	purchase := r.PurchaseType
	if purchase == "" {
		purchase = "all"
	}
	n := r.NumPerPage
	if n > MaxPageSize {
		n = MaxPageSize
	}

	q := url.Values{}
	q.Set("json", "1")
	q.Set("filter", r.Polarity.param())
	q.Set("language", r.Language)
	q.Set("day_range", DayRangeAllTime)
	q.Set("cursor", cursor)
	q.Set("review_type", r.Polarity.param())
	q.Set("purchase_type", purchase)
	q.Set("num_per_page", strconv.Itoa(n))
	return q
}

// Flag decodes the success field, which the live API sends as 1/0 and
// older clients document as a boolean.
type Flag bool

// UnmarshalJSON accepts true/false, numbers and null.
func (f *Flag) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	switch s {
	case "true":
		*f = true
	case "false", "null", "":
		*f = false
	default:
		n, err := strconv.ParseFloat(strings.Trim(s, `"`), 64)
		if err != nil {
			return fmt.Errorf("invalid success flag %s", s)
		}
		*f = n != 0
	}
	return nil
}

// QuerySummary is the aggregate block sent with the first page.
type QuerySummary struct {
	NumReviews      int    `json:"num_reviews"`
	ReviewScore     int    `json:"review_score"`
	ReviewScoreDesc string `json:"review_score_desc"`
	TotalPositive   int    `json:"total_positive"`
	TotalNegative   int    `json:"total_negative"`
	TotalReviews    int    `json:"total_reviews"`
}

// Page is one decoded listing response.
type Page struct {
	Success      Flag          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Cursor       string        `json:"cursor,omitempty"`
	QuerySummary *QuerySummary `json:"query_summary,omitempty"`
	Reviews      []review.Raw  `json:"reviews"`

	// FromCache is set when the page was served from the page cache.
	FromCache bool `json:"-"`
}
