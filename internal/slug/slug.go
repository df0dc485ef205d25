// Package slug derives grouping keys from media URLs. Mirrors of the same
// video published under different locale paths share the final path segment,
// so the key is that segment lowercased.
package slug

import (
	"net/url"
	"strings"
)

// Key returns the dedup grouping key for a media URL: the last non-empty
// path segment, lowercased. URLs that fail to parse fall back to the whole
// URL with any query string stripped, lowercased, so malformed entries still
// group deterministically with their exact twins.
func Key(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		fallback := rawURL
		if i := strings.IndexByte(fallback, '?'); i >= 0 {
			fallback = fallback[:i]
		}
		return strings.ToLower(fallback)
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}
	return strings.ToLower(last)
}
