// Public domain.

package tle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Sources maps Celestrak group names to the plain text element set files
// published for them.
var Sources = map[string]string{
	"stations": "https://celestrak.org/NORAD/elements/stations.txt",
	"active":   "https://celestrak.org/NORAD/elements/active.txt",
}

// ResolveSource returns the URL for a group name in Sources, or s itself
// if it is an http or https URL.
func ResolveSource(s string) (string, error) {
	if u, ok := Sources[s]; ok {
		return u, nil
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s, nil
	}
	return "", fmt.Errorf("invalid source %q", s)
}

// Fetch gets a Celestrak style element set file from url and parses it.
//
// Files served this way sometimes carry headings or markup.  These are
// quietly skipped by the parser.  A response that parses to no records is
// not an error here; callers decide what an empty set means to them.
func Fetch(ctx context.Context, client *http.Client, url string) ([]Record, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	r, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer r.Body.Close()
	if r.StatusCode < 200 || r.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: %s", url, r.Status)
	}
	return Split(r.Body)
}
