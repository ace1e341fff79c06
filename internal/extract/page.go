package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Page is the usable content of a crawled web page.
type Page struct {
	Title   string
	Content string
	Domain  string
}

// PageFetcher pulls the content of a live URL. Browser-driven crawlers can
// replace the default HTTP implementation behind this interface.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}

// HTTPFetcher fetches pages with a plain GET and strips the markup.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates a fetcher with a bounded request timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: %s", pageURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pageURL, err)
	}

	title, content := StripHTML(string(body))
	return &Page{Title: title, Content: content, Domain: parsed.Hostname()}, nil
}

// Reachable checks that a URL answers a HEAD request with 200 before any
// heavier processing starts.
func Reachable(ctx context.Context, client *http.Client, target string) error {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("url unreachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("url unreachable: %s", resp.Status)
	}
	return nil
}
