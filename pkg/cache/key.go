package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies one cached page response. The request parameters fully
// determine the page (counter, dates, query fields, limit, offset), so
// the key is derived from them alone.
type Key struct {
	// Params are the serialized request parameters of the page fetch.
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: metrika:param1=val1:param2=val2 with parameters sorted by name.
//
// Example:
//
//	metrika:date1=2024-01-01:date2=2024-01-31:ids=44147844:limit=10000:offset=1:preset=traffic
func (k Key) String() string {
	parts := []string{"metrika"}

	names := make([]string, 0, len(k.Params))
	for name := range k.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params.Get(name)))
	}

	return strings.Join(parts, ":")
}
