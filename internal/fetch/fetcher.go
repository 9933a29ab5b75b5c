// Package fetch resolves URLs to plain text for ingestion. HTML and
// markdown responses are converted to text; anything else is treated as
// plain text already.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout bounds a single fetch, covering connect through body read.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response is read (4 MB).
const maxBodyBytes = 4 << 20

// Fetcher retrieves remote documents over HTTP.
type Fetcher struct {
	client *http.Client
}

// New creates a Fetcher with the given timeout. A non-positive timeout
// falls back to DefaultTimeout.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the given URL and returns its content as plain text.
// Any failure (bad URL, timeout, non-2xx status, empty body) is an error;
// the caller treats it as terminal for the ingestion.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/markdown, text/plain, text/html;q=0.9, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetching %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rawURL, err)
	}

	text := string(body)
	switch {
	case isHTML(resp.Header.Get("Content-Type"), text):
		text = htmlToPlainText(text)
	case isMarkdown(resp.Header.Get("Content-Type"), parsed.Path):
		text = MarkdownToPlainText(body)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("fetching %s: empty document", rawURL)
	}
	return text, nil
}

func isHTML(contentType, body string) bool {
	if strings.Contains(contentType, "text/html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(body))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

func isMarkdown(contentType, path string) bool {
	if strings.Contains(contentType, "text/markdown") {
		return true
	}
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	htmlScriptRegex = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
)

// htmlToPlainText does a basic HTML-to-text conversion.
func htmlToPlainText(html string) string {
	text := htmlScriptRegex.ReplaceAllString(html, "")

	// Replace common block elements with newlines.
	text = strings.ReplaceAll(text, "<br>", "\n")
	text = strings.ReplaceAll(text, "<br/>", "\n")
	text = strings.ReplaceAll(text, "</p>", "\n\n")
	text = strings.ReplaceAll(text, "</div>", "\n")
	text = strings.ReplaceAll(text, "</li>", "\n")

	// Strip all remaining tags.
	text = htmlTagRegex.ReplaceAllString(text, "")

	// Clean up whitespace.
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
