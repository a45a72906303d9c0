// Package remote fetches build logs over HTTP, unwrapping the Read the
// Docs build API where it can.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	fetchTimeout = 30 * time.Second
	userAgent    = "docs-build-filter/1.0"
)

var httpClient = &http.Client{Timeout: fetchTimeout}

// Read the Docs build page and API URLs, both rewritten to the raw log
// endpoint.
var (
	rtdBuildPagePattern = regexp.MustCompile(`^https?://(?:app\.)?readthedocs\.org/projects/[^/]+/builds/(\d+)/?`)
	rtdBuildAPIPattern  = regexp.MustCompile(`^https?://(?:app\.)?readthedocs\.org/api/v3/projects/[^/]+/builds/(\d+)/?`)
)

// logFields are probed in order; build APIs disagree on where the log
// text lives in a JSON payload.
var logFields = []string{"output", "log", "logs", "build_log", "stdout", "stderr"}

// TransformURL rewrites a Read the Docs build page URL into the endpoint
// serving the raw build log. Any other URL passes through untouched.
func TransformURL(rawURL string) string {
	if m := rtdBuildPagePattern.FindStringSubmatch(rawURL); m != nil {
		return "https://app.readthedocs.org/api/v2/build/" + m[1] + ".txt"
	}
	if m := rtdBuildAPIPattern.FindStringSubmatch(rawURL); m != nil {
		return "https://app.readthedocs.org/api/v2/build/" + m[1] + ".txt"
	}
	return rawURL
}

// Fetch downloads build output from rawURL, applying the Read the Docs
// rewrite first. JSON responses are unwrapped by probing the usual log
// fields; any other response body is returned verbatim.
func Fetch(ctx context.Context, rawURL string) (string, error) {
	url := TransformURL(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid URL %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/plain, text/html, application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if text, ok := extractLogFromJSON(body); ok {
			return text, nil
		}
	}
	return string(body), nil
}

func extractLogFromJSON(body []byte) (string, bool) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}

	for _, field := range logFields {
		value, ok := payload[field]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if v == "" {
				continue
			}
			return v, true
		case []any:
			if len(v) == 0 {
				continue
			}
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
					continue
				}
				parts = append(parts, fmt.Sprint(item))
			}
			return strings.Join(parts, "\n"), true
		default:
			return fmt.Sprint(v), true
		}
	}
	return "", false
}
