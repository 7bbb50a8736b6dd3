package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "steamreviews"

// Key identifies one cached review page.
type Key struct {
	// AppID is the product identifier the page belongs to.
	AppID string

	// Query holds the request query parameters, cursor included.
	Query url.Values
}

// String generates a deterministic cache key string.
// Format: steamreviews:<app>:param1=val1:param2=val2
//
// Example:
//
//	steamreviews:578080:cursor=*:json=1:language=english
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if app := strings.TrimSpace(k.AppID); app != "" {
		parts = append(parts, app)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Query.Get(name)))
		}
	}

	return strings.Join(parts, ":")
}
