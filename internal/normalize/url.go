// Package normalize implements the canonicalization rules that keep
// cosmetically different URLs and titles from producing duplicate articles:
// URL canonicalization, title signature preparation, and Jaccard similarity
// over title token sets.
package normalize

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// trackingParams is matched by exact (lowercased) key.
var trackingParams = map[string]struct{}{
	"fbclid":   {},
	"gclid":    {},
	"yclid":    {},
	"cmp":      {},
	"ref":      {},
	"referrer": {},
	"source":   {},
}

// trackingPrefixes is matched by lowercased key prefix.
var trackingPrefixes = []string{"utm_", "spm", "_hs", "mc_", "icn", "icp"}

// URL canonicalizes raw into an absolute URL with fragments dropped, default
// ports removed, tracking query parameters stripped, remaining query
// parameters sorted by key then value, and trailing slashes trimmed from the
// path (except the bare root "/").
func URL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("normalize url %q: %w", raw, err)
	}
	if !parsed.IsAbs() {
		return "", fmt.Errorf("normalize url %q: not an absolute url", raw)
	}

	parsed.Fragment = ""

	if host, port := splitHostPort(parsed.Host); port != "" {
		removeDefault := (parsed.Scheme == "http" && port == "80") ||
			(parsed.Scheme == "https" && port == "443")
		if removeDefault {
			parsed.Host = host
		}
	}

	parsed.RawQuery = normalizeQuery(parsed.Query())
	parsed.Path = trimmedPath(parsed.Path)

	return parsed.String(), nil
}

func splitHostPort(host string) (hostOnly, port string) {
	idx := strings.LastIndex(host, ":")
	if idx < 0 {
		return host, ""
	}
	// Guard against bare IPv6 hosts without a port, e.g. "[::1]".
	if strings.HasSuffix(host, "]") {
		return host, ""
	}
	return host[:idx], host[idx+1:]
}

func normalizeQuery(values url.Values) string {
	kept := make([][2]string, 0, len(values))
	for key, vals := range values {
		if isTrackingParam(key) {
			continue
		}
		for _, v := range vals {
			kept = append(kept, [2]string{key, v})
		}
	}
	if len(kept) == 0 {
		return ""
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i][0] != kept[j][0] {
			return kept[i][0] < kept[j][0]
		}
		return kept[i][1] < kept[j][1]
	})

	var b strings.Builder
	first := true
	for _, pair := range kept {
		if !first {
			b.WriteByte('&')
		}
		first = false
		b.WriteString(url.QueryEscape(pair[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pair[1]))
	}
	return b.String()
}

func isTrackingParam(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := trackingParams[lower]; ok {
		return true
	}
	for _, prefix := range trackingPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func trimmedPath(path string) string {
	if path == "" || path == "/" {
		return path
	}
	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}
