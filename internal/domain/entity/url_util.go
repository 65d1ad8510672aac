package entity

import (
	"net/url"
	"strings"
)

// InferSourceDomain returns the lowercase host of rawURL, used to populate
// Feed.SourceDomain when an admin upsert omits it.
func InferSourceDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", &ValidationError{Field: "url", Message: "missing host"}
	}
	return host, nil
}
