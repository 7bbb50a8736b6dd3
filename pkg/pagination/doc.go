// Package pagination drives cursor-based retrieval of product reviews.
//
// The review API hands out an opaque cursor with every page. The Fetcher
// starts at "*", asks for min(100, remaining) reviews per request, follows
// the cursor and stops at the first of: target reached, empty page, missing
// cursor, failed request. Requests are strictly sequential with a pause
// between them; a page served from the cache is not followed by a pause.
//
// Example usage:
//
//	fetcher := pagination.NewFetcher(apiClient, ratelimit.Fixed(500*time.Millisecond))
//	result := fetcher.Fetch(ctx, "578080", pagination.Options{
//		MaxReviews: 5000,
//		Polarity:   client.PolarityAll,
//		Language:   "english",
//	})
//	if result.Err != nil {
//		// result.Records still holds everything gathered before the failure
//	}
//
// Failures never discard records: the Result carries what was gathered and
// a Reason saying why the loop ended.
package pagination
